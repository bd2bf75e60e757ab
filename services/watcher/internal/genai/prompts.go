package genai

import "fmt"

// PromptKind selects one of the fixed prompt templates.
type PromptKind int

const (
	PromptAnalysis PromptKind = iota + 1
	PromptMapDesign
	PromptSummary
)

// PromptArgs carries the template inputs. Unused fields are ignored.
type PromptArgs struct {
	DataSummary string
	Analysis    string
	Stats       string
}

var promptNames = map[PromptKind]string{
	PromptAnalysis:  "analysis",
	PromptMapDesign: "map_design",
	PromptSummary:   "summary",
}

func (k PromptKind) String() string {
	if name, ok := promptNames[k]; ok {
		return name
	}
	return fmt.Sprintf("prompt(%d)", int(k))
}

// Prompt renders the template for kind.
func Prompt(kind PromptKind, args PromptArgs) (string, error) {
	switch kind {
	case PromptAnalysis:
		return fmt.Sprintf(analysisTemplate, args.DataSummary), nil
	case PromptMapDesign:
		return fmt.Sprintf(mapDesignTemplate, args.Analysis, args.DataSummary), nil
	case PromptSummary:
		return fmt.Sprintf(summaryTemplate, args.Stats), nil
	default:
		return "", fmt.Errorf("unknown prompt kind %s", kind)
	}
}

const analysisTemplate = `You are a spatial data analyst specializing in bike-sharing systems.
Analyze the following BIXI (Montreal bike-sharing) station snapshot and provide insights:

%s

Please provide:
1. Key patterns and trends in station utilization
2. Geographic clusters of high/low availability
3. Recommendations for optimal station placement
4. Potential issues or anomalies
5. Suggestions for improving the bike-sharing system

Format your response in clear sections with actionable insights.`

const mapDesignTemplate = `You are a cartographic expert. Based on the following analysis of BIXI data:

ANALYSIS RESULTS:
%s

DATA SUMMARY:
%s

Provide recommendations for an effective web map of the station GeoJSON layer:
1. Suggested symbology (colors, sizes, styles) for the utilization_rate attribute
2. Layer organization and hierarchy
3. Classification methods (natural breaks, quantile, etc.)
4. Legend design recommendations
5. Layout suggestions (title, scale, north arrow placement)
6. Color schemes that highlight patterns effectively

Format your response as structured, implementable recommendations.`

const summaryTemplate = `Summarize the following BIXI data statistics in a clear, concise format:

%s

Include:
- Total number of stations
- Average bikes available
- Average docks available
- Utilization patterns
- Geographic extent
- Any notable patterns or outliers

Keep it concise (2-3 paragraphs) and focus on key insights.`
