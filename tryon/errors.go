package tryon

// ValidationError carries a message meant for the user. It is returned
// before any network call is made.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func invalid(msg string) error { return &ValidationError{Message: msg} }

var (
	ErrCameraUnavailable = &ValidationError{Message: "Camera access denied or unavailable."}
	ErrNoDefaultImage    = &ValidationError{Message: "You don't have a default base image saved."}
	ErrBaseRequired      = &ValidationError{Message: "Upload photo first!"}
)

const (
	msgNoBase          = "Please upload your base image."
	msgNoGarment       = "Please select or upload a clothing item."
	msgNoImage         = "Please choose an image file."
	msgTokenEmpty      = "Please enter a token."
	msgTokenFormat     = `Invalid format. Token must start with "hf_" and be at least 10 characters.`
	msgRecommendFirst  = "Please generate a Try-On outfit first before requesting styling suggestions."
	msgSaveFirst       = "Please generate a Try-On outfit before saving to your wardrobe."
	msgNoStyle         = "Please select a style category."
	msgInvalidAPIURL   = "Please enter a valid http(s) URL."
	msgNoProductImage  = "Could not find a product image on that page."
	msgUnknownCombo    = "Unknown style combo."
	msgBadSize         = "Image size must be between 0 and 4096 pixels."
	tokenPrefix        = "hf_"
	tokenMinimumLength = 10
)
