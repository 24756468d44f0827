package evaluator

import (
	"fmt"
	"strings"
	"time"

	"github.com/iWorld-y/world_end/app/radar/pkg/model"
)

const systemPrompt = "You are a JSON generator. Output a single JSON object and nothing else."

const assessmentSchema = `Return ONLY valid JSON:
{
  "overall_risk_level": number (0-100, based on current threat intensity from news),
  "countries": [
    {
      "name": "exact country name",
      "iso_code": "3-letter ISO code",
      "risk_level": number (0-100, based on current situation),
      "conflicts": [
        {
          "title": "specific current conflict/issue",
          "description": "current situation based on news",
          "severity": number (1-10, current intensity),
          "type": "war|political_unrest|economic|natural_disaster|terrorist|cyber|diplomatic",
          "risk_score": number (0-100, immediate threat level)
        }
      ]
    }
  ],
  "key_events": ["current major event 1", "current major event 2", "current major event 3"],
  "trend_direction": "increasing|decreasing|stable",
  "news_summary": "2-3 sentence summary of current global threats from these articles",
  "ai_reasoning": "explanation of current risk assessment based on breaking news"
}

Focus on countries mentioned in the news articles. For major powers (US, China, Russia, etc.) always include a current assessment even if not directly mentioned.`

// buildAssessmentPrompt 组装评估 prompt：日期、文章、最近的历史评分与步长约束
func buildAssessmentPrompt(now time.Time, articles []model.Article, history []*model.Evaluation, maxStep float64) string {
	date := now.Format(time.DateOnly)

	var sb strings.Builder
	fmt.Fprintf(&sb, "Today is %s at %s. You are analyzing breaking news to assess global conflict risks. ", date, now.Format("15:04:05 MST"))
	sb.WriteString("Base your analysis STRICTLY on the provided news articles and current global context.\n\n")

	sb.WriteString("Recent breaking news:\n")
	for _, a := range articles {
		desc := a.Description
		if desc == "" {
			desc = "No description"
		}
		published := a.PublishedAt
		if published == "" {
			published = "Recent"
		}
		fmt.Fprintf(&sb, "Title: %s\nDescription: %s\nPublished: %s\n", a.Title, desc, published)
		if a.Content != "" {
			fmt.Fprintf(&sb, "Content: %s\n", a.Content)
		}
		sb.WriteString("---\n")
	}

	if len(history) > 0 {
		sb.WriteString("\nPrevious assessments (most recent first):\n")
		for _, h := range history {
			fmt.Fprintf(&sb, "- %s: %.2f | %s\n", h.CreatedAt.Format(time.RFC3339), h.Score, h.NewsSummary)
		}
	}

	fmt.Fprintf(&sb, `
CRITICAL INSTRUCTIONS:
- Analyze ONLY based on the news provided above and current global events as of %s
- Risk levels should reflect the actual intensity and immediacy of threats mentioned in these articles
- Countries with active conflicts or breaking tensions should have higher risk levels (70-90)
- Countries with diplomatic tensions or economic issues should have moderate levels (40-70)
- Stable countries with no major issues should have lower levels (10-40)
- Trend direction should reflect whether recent events are escalating or de-escalating
`, date)
	if len(history) > 0 {
		fmt.Fprintf(&sb, "- Move overall_risk_level by no more than %.0f points from the most recent assessment unless the news clearly justifies a larger change\n", maxStep)
		sb.WriteString("- Keep standing conflicts from previous assessments unless the news contradicts them\n")
	}
	sb.WriteString("\n")
	sb.WriteString(assessmentSchema)
	return sb.String()
}

// buildDailyPrompt 组装每日汇总 prompt
func buildDailyPrompt(date string, records []*model.Evaluation, average float64) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Below are the world-end risk assessments recorded on %s. The average score was %.2f.\n\n", date, average)
	for _, r := range records {
		fmt.Fprintf(&sb, "[%s] score %.2f\nSummary: %s\nReasoning: %s\n---\n",
			r.CreatedAt.Format(time.TimeOnly), r.Score, r.NewsSummary, r.Reasoning)
	}
	sb.WriteString(`
Summarize the day. Return ONLY valid JSON:
{
  "key_events": ["major event 1", "major event 2", "major event 3"],
  "overall_impact": "2-3 sentences on how the day changed global conflict risk"
}`)
	return sb.String()
}
