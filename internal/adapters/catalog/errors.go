package catalog

import "errors"

// ErrCatalogUnavailable reports that the catalog could not be fetched or
// decoded. Callers degrade to an empty catalog.
var ErrCatalogUnavailable = errors.New("catalog unavailable")
