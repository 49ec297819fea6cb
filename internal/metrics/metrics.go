// Package metrics provides the formulas and line counters used to measure
// source scopes.
package metrics

// Metric names attached to scopes.
const (
	FnArgs      = "fn_args"
	ClosureArgs = "closure_args"
	Exits       = "nexits"
	Cognitive   = "cognitive"
	Cyclomatic  = "cyclomatic"
	Nesting     = "nesting"

	HalsteadUniqueOperators = "halstead_n1"
	HalsteadOperators       = "halstead_N1"
	HalsteadUniqueOperands  = "halstead_n2"
	HalsteadOperands        = "halstead_N2"
	HalsteadLength          = "halstead_length"
	HalsteadEstimatedLength = "halstead_estimated_program_length"
	HalsteadPurityRatio     = "halstead_purity_ratio"
	HalsteadVocabulary      = "halstead_vocabulary"
	HalsteadVolume          = "halstead_volume"
	HalsteadDifficulty      = "halstead_difficulty"
	HalsteadLevel           = "halstead_level"
	HalsteadEffort          = "halstead_effort"
	HalsteadTime            = "halstead_time"
	HalsteadBugs            = "halstead_bugs"

	SourceLines   = "loc_sloc"
	PhysicalLines = "loc_ploc"
	LogicalLines  = "loc_lloc"
	CommentLines  = "loc_cloc"
	BlankLines    = "loc_blank"

	Functions = "nom_functions"
	Closures  = "nom_closures"
	Callables = "nom_total"

	MIOriginal     = "mi_original"
	MISEI          = "mi_sei"
	MIVisualStudio = "mi_visual_studio"

	TodoCount  = "todo_count"
	FixmeCount = "fixme_count"
	HackCount  = "hack_count"
)

// Subtree metrics summarized in extended mode.
var Extendable = []string{FnArgs, ClosureArgs, Exits, Cognitive, Cyclomatic, Functions, Closures}
