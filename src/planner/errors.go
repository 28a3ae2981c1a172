package planner

import "errors"

// ErrValidation marks bad input to one of the calculators. Handlers map it to
// a 400 response; everything wrapped with it carries enough detail for the
// caller to fix the request.
var ErrValidation = errors.New("validation failed")
