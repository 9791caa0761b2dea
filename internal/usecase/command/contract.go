package command

import (
	"github.com/kailas-cloud/bimlink/internal/domain/descriptor"
	domfilter "github.com/kailas-cloud/bimlink/internal/domain/filter"
	"github.com/kailas-cloud/bimlink/internal/host"
	"github.com/kailas-cloud/bimlink/internal/usecase/filter"
)

// Collector selects the elements matching a filter description.
type Collector interface {
	Collect(doc *host.Document, d domfilter.Description) (filter.Result, error)
}

// Describer turns elements into descriptors.
type Describer interface {
	Describe(doc *host.Document, elems []*host.Element) descriptor.List
}
