package chat

// Gemini Model IDs
//
// | Model Name                  | API Model ID                   | Use Case                       |
// |-----------------------------|--------------------------------|--------------------------------|
// | Gemini 2.5 Flash Image      | gemini-2.5-flash-image         | Fast image editing/generation  |
// | Gemini 3 Pro Image          | gemini-3-pro-image-preview     | Advanced image generation/edit |
// | Gemini 3 Flash (Preview)    | gemini-3-flash-preview         | Text, used for key validation  |
const (
	// ModelGemini25FlashImage is fast image editing and generation.
	ModelGemini25FlashImage = "gemini-2.5-flash-image"

	// ModelGemini3ProImage is for advanced image generation/edit.
	ModelGemini3ProImage = "gemini-3-pro-image-preview"

	// ModelGemini3FlashPreview is the cheap text model used to validate keys.
	ModelGemini3FlashPreview = "gemini-3-flash-preview"
)

// DefaultRemovalModel removes backgrounds unless configured otherwise.
const DefaultRemovalModel = ModelGemini25FlashImage

// DefaultGenerationModel generates backgrounds unless configured otherwise.
const DefaultGenerationModel = ModelGemini25FlashImage
