package decision

import (
	"bytes"
	"encoding/json"
	"fmt"
	"text/template"

	"pm-sandbox/internal/market"
)

const decisionTemplate = `
你是一个多策略预测市场组合经理。可用策略只有两个：
- "ou_arb"：跨平台价差套利（买 Polymarket、卖 Opinion）
- "sniper"：折价狙击（市场价显著低于公允价时吃单买入）

当前行情特征：
{{ .TickJSON }}

近期信号窗口统计：
{{ .SummaryJSON }}
{{ if .PatternJSON }}
历史形态上下文：
{{ .PatternJSON }}
{{ end }}
请判断当前更适合哪一个策略，并严格输出唯一的 JSON 对象：
{
  "chosen_strategy": "ou_arb|sniper",   // 必须是两个已知策略之一
  "risk_mode": "defensive|normal|aggressive",
  "reason": "...",                      // 支撑结论的关键理由
  "confidence": 0.0-1.0                 // 可选，缺省按 0.5 处理
}

注意事项：
- 只输出 JSON，不要输出任何额外文本。
- 无法判断时选择 "ou_arb" 并使用 "normal" 风险档位。
`

var tmpl = template.Must(template.New("decision").Parse(decisionTemplate))

// tickPayload 是发给模型的精简行情快照。
type tickPayload struct {
	PMAsk      float64     `json:"pm_ask,omitempty"`
	PMBid      float64     `json:"pm_bid,omitempty"`
	OPAsk      float64     `json:"op_ask,omitempty"`
	OPBid      float64     `json:"op_bid,omitempty"`
	BestAsk    float64     `json:"best_ask,omitempty"`
	BestBid    float64     `json:"best_bid,omitempty"`
	Mode       market.Mode `json:"mode,omitempty"`
	GasCostUSD float64     `json:"gas_cost_usd,omitempty"`
	Spread     float64     `json:"spread"`
}

type patternPayload struct {
	PatternName string  `json:"pattern_name"`
	AvgReturn3D float64 `json:"avg_return_3d"`
	Confidence  string  `json:"confidence_level"`
}

type promptContext struct {
	TickJSON    string
	SummaryJSON string
	PatternJSON string
}

// BuildPrompt 将行情快照与窗口统计渲染成提示词字符串。
func BuildPrompt(tick market.Tick, summary WindowSummary) (string, error) {
	payload := tickPayload{
		PMAsk:      tick.PMAsk,
		PMBid:      tick.PMBid,
		OPAsk:      tick.OPAsk,
		OPBid:      tick.OPBid,
		BestAsk:    tick.BestAsk,
		BestBid:    tick.BestBid,
		Mode:       tick.Mode,
		GasCostUSD: tick.GasCostUSD,
		Spread:     tick.ArbSpread(),
	}

	tickJSON, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", fmt.Errorf("序列化行情特征失败: %w", err)
	}

	summaryJSON, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return "", fmt.Errorf("序列化窗口统计失败: %w", err)
	}

	ctx := promptContext{
		TickJSON:    string(tickJSON),
		SummaryJSON: string(summaryJSON),
	}

	if tick.Pattern != nil {
		patternJSON, err := json.MarshalIndent(patternPayload{
			PatternName: tick.Pattern.PatternName,
			AvgReturn3D: tick.Pattern.AvgReturn3D,
			Confidence:  string(tick.Pattern.Confidence),
		}, "", "  ")
		if err != nil {
			return "", fmt.Errorf("序列化形态上下文失败: %w", err)
		}
		ctx.PatternJSON = string(patternJSON)
	}

	var buf bytes.Buffer
	if err = tmpl.Execute(&buf, ctx); err != nil {
		return "", fmt.Errorf("渲染提示词失败: %w", err)
	}

	return buf.String(), nil
}
