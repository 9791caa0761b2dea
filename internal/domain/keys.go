package domain

// KeyPrefix is the default namespace for every key bimlink writes to the store.
const KeyPrefix = "bimlink:"
