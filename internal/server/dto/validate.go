// Request validation hook shared by every JSON endpoint.

package dto

// Validatable is the type constraint on Wrap request bodies. Validate runs
// after JSON decoding and before the path policy or the content store are
// consulted; a non-nil *APIError is sent to the client unchanged.
type Validatable interface {
	Validate() error
}
