package tools

// Depth of the research.
type Depth string

// Research depths.
const (
	DepthBasic    Depth = "basic"
	DepthDetailed Depth = "detailed"
	DepthExpert   Depth = "expert"
)

// Format of the research result.
type Format string

// Research result formats.
const (
	FormatSummary      Format = "summary"
	FormatBulletPoints Format = "bullet_points"
	FormatReport       Format = "report"
	FormatJSON         Format = "json"
)

// AnalysisType selects the analysis instructions.
type AnalysisType string

// Analysis types.
const (
	AnalysisCodeReview   AnalysisType = "code_review"
	AnalysisDataAnalysis AnalysisType = "data_analysis"
	AnalysisPerformance  AnalysisType = "performance"
	AnalysisSecurity     AnalysisType = "security"
	AnalysisOptimization AnalysisType = "optimization"
)

// TimeRange of the requested information.
type TimeRange string

// Time ranges.
const (
	TimeRangeRecent          TimeRange = "recent"
	TimeRangeThisMonth       TimeRange = "this_month"
	TimeRangeThisYear        TimeRange = "this_year"
	TimeRangeLatestAvailable TimeRange = "latest_available"
)

// ResearchArgs are the arguments of chatgpt_research.
type ResearchArgs struct {
	Topic  string `json:"topic" yaml:"topic" jsonschema:"description=The topic to research" validate:"required"`
	Depth  Depth  `json:"depth" yaml:"depth" jsonschema:"description=Research depth (basic: core concepts\\, detailed: in-depth analysis\\, expert: expert level),enum=basic,enum=detailed,enum=expert" validate:"required,oneof=basic detailed expert"`
	Focus  string `json:"focus,omitempty" yaml:"focus,omitempty" jsonschema:"description=An area or perspective to focus on"`
	Format Format `json:"format,omitempty" yaml:"format,omitempty" jsonschema:"description=Result format,enum=summary,enum=bullet_points,enum=report,enum=json,default=summary" validate:"omitempty,oneof=summary bullet_points report json"`
}

// AnalyzeArgs are the arguments of chatgpt_analyze.
type AnalyzeArgs struct {
	Data         string       `json:"data" yaml:"data" jsonschema:"description=The data or code to analyze" validate:"required"`
	AnalysisType AnalysisType `json:"analysis_type" yaml:"analysis_type" jsonschema:"description=Analysis type,enum=code_review,enum=data_analysis,enum=performance,enum=security,enum=optimization" validate:"required,oneof=code_review data_analysis performance security optimization"`
	Context      string       `json:"context,omitempty" yaml:"context,omitempty" jsonschema:"description=Additional context for the analysis"`
}

// CollaborateArgs are the arguments of chatgpt_collaborate.
type CollaborateArgs struct {
	ProjectDescription string `json:"project_description" yaml:"project_description" jsonschema:"description=Project description" validate:"required"`
	ClaudeContribution string `json:"claude_contribution" yaml:"claude_contribution" jsonschema:"description=The work or contribution made by Claude" validate:"required"`
	NextStepRequest    string `json:"next_step_request" yaml:"next_step_request" jsonschema:"description=The next step requested from ChatGPT" validate:"required"`
	CollaborationID    string `json:"collaboration_id,omitempty" yaml:"collaboration_id,omitempty" jsonschema:"description=Collaboration session ID (optional: continues an existing session)"`
}

// LatestInfoArgs are the arguments of chatgpt_get_latest_info.
type LatestInfoArgs struct {
	Query     string    `json:"query" yaml:"query" jsonschema:"description=The information or question to look up" validate:"required"`
	TimeRange TimeRange `json:"time_range,omitempty" yaml:"time_range,omitempty" jsonschema:"description=Time range of the information,enum=recent,enum=this_month,enum=this_year,enum=latest_available,default=recent" validate:"omitempty,oneof=recent this_month this_year latest_available"`
	Sources   []string  `json:"sources,omitempty" yaml:"sources,omitempty" jsonschema:"description=Preferred information sources (e.g. official_docs\\, github\\, blogs)"`
}
