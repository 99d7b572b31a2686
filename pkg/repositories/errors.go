package repositories

import "errors"

// errNoScope is returned when a repository is called without a database
// scope in the context.
var errNoScope = errors.New("no database scope in context")
