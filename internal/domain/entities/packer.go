package entities

// MaxConfidence caps every packer score
const MaxConfidence = 100

// PackerMatch is a packer/protector identification with its confidence (0-100).
// A nil match means nothing scored high enough, not that the file is unpacked.
type PackerMatch struct {
	Name       string
	Confidence int
	Module     string // identifier of the module that produced it
}
