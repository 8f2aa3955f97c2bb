package vocab

// Stage is one enrichment step. Stages run in declaration order.
type Stage int

const (
	StageMetadata Stage = iota + 1
	StageDefinition
	StageExamples
	StageImagePrompt
	StageImageGeneration
)

// Stages lists every stage in pipeline order.
var Stages = []Stage{
	StageMetadata,
	StageDefinition,
	StageExamples,
	StageImagePrompt,
	StageImageGeneration,
}

func (s Stage) String() string {
	switch s {
	case StageMetadata:
		return "metadata"
	case StageDefinition:
		return "definition"
	case StageExamples:
		return "examples"
	case StageImagePrompt:
		return "image_prompt"
	case StageImageGeneration:
		return "image_generation"
	}
	return "unknown"
}

// ComplexOnly reports whether the stage is skipped for SIMPLE words.
func (s Stage) ComplexOnly() bool {
	return s == StageDefinition || s == StageExamples || s == StageImagePrompt
}
