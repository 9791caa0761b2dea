package classify

import (
	"github.com/kailas-cloud/bimlink/internal/domain/descriptor"
	"github.com/kailas-cloud/bimlink/internal/host"
)

// KindOf picks the descriptor variant for an element. Rules are checked in
// order and the first match wins.
func KindOf(e *host.Element) descriptor.Kind {
	cat, known := host.LookupCategory(e.Category)
	switch {
	case known && cat.MaterialQuantities && !e.IsElementType():
		return descriptor.KindInstance
	case e.IsElementType():
		return descriptor.KindType
	case e.Class == host.ClassLevel || e.Class == host.ClassGrid:
		return descriptor.KindPositioning
	case e.Is(host.ClassSpatialElement):
		return descriptor.KindSpatial
	case e.Class.IsView():
		return descriptor.KindView
	case isAnnotation(e, cat, known):
		return descriptor.KindAnnotation
	case e.Class == host.ClassGroup || e.Class == host.ClassRevitLinkInstance:
		return descriptor.KindGroupOrLink
	default:
		return descriptor.KindBasic
	}
}

func isAnnotation(e *host.Element, cat host.Category, known bool) bool {
	switch {
	case e.Class == host.ClassTextNote,
		e.Is(host.ClassDimension),
		e.Is(host.ClassIndependentTag),
		e.Is(host.ClassSpatialElementTag),
		e.Class == host.ClassAnnotationSymbol:
		return true
	case e.Is(host.ClassFamilyInstance):
		return known && cat.Type == host.CategoryAnnotation
	}
	return false
}
