package report

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"pet-triage-backend/internal/feature"
)

// BuildPrompt embeds every feature field, the owner note and pet metadata
// and asks for four named sections.
func BuildPrompt(rec feature.Record, ownerNote string, pet feature.Pet, lang Language) string {
	petJSON := "{}"
	if !pet.IsZero() {
		if b, err := json.Marshal(pet); err == nil {
			petJSON = string(b)
		}
	}
	note := strings.TrimSpace(ownerNote)
	confidence := int(math.Round(rec.Confidence * 100))

	if lang == LanguageEN {
		if note == "" {
			note = "none"
		}
		return fmt.Sprintf(`You are a senior veterinary health expert. Based on the %s result, write a health assessment for the pet owner.

[Analysis data]
- Stool color: %s
- Texture: %s
- Consistency: %s
- Size: %s
- Abnormal indicators:
  * Blood: %s
  * Mucus: %s
  * Parasites: %s
- Analysis confidence: %d%%
- Overall classification: %s

[Additional information]
Pet details: %s
Owner notes: %s

Structure the report as:

**Health Status Summary**
Two or three sentences on the current stool health.

**Detailed Analysis**
1. Color and shape
2. Abnormal indicators
3. Possible causes

**Care Recommendations**
1. Immediate care
2. Diet adjustments
3. What to watch for

**When to See a Vet**
State clearly whether a vet visit is needed and how urgent it is.

Use a calm, professional tone. Do not alarm the owner, but convey health risks accurately. Reply in English.`,
			sourcePhrase(rec.Source, lang), rec.Color, rec.Texture, rec.Consistency, rec.Size,
			detected(rec.Blood, "detected", "not detected"),
			detected(rec.Mucus, "detected", "not detected"),
			detected(rec.Worms, "suspected", "not found"),
			confidence, rec.Classification, petJSON, note)
	}

	if note == "" {
		note = "无"
	}
	return fmt.Sprintf(`作为资深宠物健康专家，基于%s结果，为宠物主人生成专业的健康评估报告：

【分析数据】
- 粪便颜色: %s
- 质地形状: %s
- 一致性: %s
- 分量: %s
- 异常指标:
  * 血丝: %s
  * 粘液: %s
  * 寄生虫: %s
- AI分析置信度: %d%%
- 整体分类: %s

【附加信息】
宠物基本信息: %s
主人补充描述: %s

请按以下结构生成报告：

**健康状态评估**
简明扼要地描述当前粪便健康状况（2-3句话）

**具体分析**
1. 颜色与形状分析
2. 异常指标评估
3. 可能原因分析

**专业建议**
1. 即时护理建议
2. 饮食调整建议
3. 观察要点

**就医指导**
明确是否需要立即就医，以及紧急程度

请用温和专业的语气，避免过度惊慌，但要准确传达健康风险。用中文回复。`,
		sourcePhrase(rec.Source, lang), rec.Color, rec.Texture, rec.Consistency, rec.Size,
		detected(rec.Blood, "检测到", "未检测到"),
		detected(rec.Mucus, "检测到", "未检测到"),
		detected(rec.Worms, "疑似存在", "未发现"),
		confidence, rec.Classification, petJSON, note)
}

func sourcePhrase(source string, lang Language) string {
	switch {
	case source == feature.SourceBuildFallback:
		if lang == LanguageEN {
			return "placeholder (no vision backend)"
		}
		return "默认占位评估"
	case strings.HasPrefix(source, "qwen"):
		if lang == LanguageEN {
			return "Qwen multimodal analysis"
		}
		return "Qwen多模态分析"
	default:
		if lang == LanguageEN {
			return "AI analysis"
		}
		return "AI智能分析"
	}
}

func detected(flag bool, yes, no string) string {
	if flag {
		return yes
	}
	return no
}
