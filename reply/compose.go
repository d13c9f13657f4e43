package reply

import (
	"fmt"
	"strings"

	"github.com/onnwee/livereply/persona"
)

// Prompt fragments.
const (
	userPromptFormat = "观众说：“%s”"
	contextClause    = "额外指示："
	templateClause   = "参考内容："
	productClause    = "商品信息："
	productLine      = "- 商品名称：%s，价格：%s，购买方式：%s"

	// MoodInstruction is appended to every system prompt before the model call.
	MoodInstruction = "请在回复的最开头加上一个情绪标签，只能从以下标签中选择一个：" +
		"[happy] [neutral] [selling] [confused] [thinking]。标签之后直接接回复内容。"
)

// MatchRules returns the rules whose trigger occurs in text, in rule order.
// Matching is case-sensitive substring containment.
func MatchRules(text string, rules []persona.KeywordRule) []persona.KeywordRule {
	var matched []persona.KeywordRule
	for _, r := range rules {
		if r.Trigger != "" && strings.Contains(text, r.Trigger) {
			matched = append(matched, r)
		}
	}
	return matched
}

// Compose builds the system and user prompts for one message.
//
// In free-QA mode the system prompt is the persona template as-is. In keyword mode
// the template is followed, one line each and only when non-empty, by the combined
// AI-context clause, the reference-template clause, and the product-info clause.
// The mood instruction is not included here.
func Compose(mode persona.ResponseMode, text string, p persona.Persona, matched []persona.KeywordRule) (systemPrompt, userPrompt string) {
	userPrompt = fmt.Sprintf(userPromptFormat, text)
	if mode != persona.ModeKeyword {
		return p.SystemPrompt, userPrompt
	}

	var contexts, templates, products []string
	for _, r := range matched {
		if r.AIContext != "" {
			contexts = append(contexts, r.AIContext)
		}
		if r.ResponseTemplate != "" {
			templates = append(templates, fmt.Sprintf("【%s】%s", r.Trigger, r.ResponseTemplate))
		}
		if r.Kind == persona.KindProductInfo {
			products = append(products, fmt.Sprintf(productLine, r.ProductNameOrDefault(), r.PriceOrDefault(), r.SellingMethodOrDefault()))
		}
	}

	parts := []string{p.SystemPrompt}
	if len(contexts) > 0 {
		parts = append(parts, contextClause+strings.Join(contexts, "；"))
	}
	if len(templates) > 0 {
		parts = append(parts, templateClause+strings.Join(templates, "；"))
	}
	if len(products) > 0 {
		parts = append(parts, productClause+"\n"+strings.Join(products, "\n"))
	}
	return strings.Join(parts, "\n"), userPrompt
}
