package report

import (
	"fmt"

	"pet-triage-backend/internal/feature"
)

var zhColor = map[feature.Color]string{
	feature.ColorBrown:     "棕色",
	feature.ColorDarkBrown: "深棕色",
	feature.ColorYellow:    "黄色",
	feature.ColorGreen:     "绿色",
	feature.ColorDarkRed:   "暗红色",
	feature.ColorBlack:     "黑色",
	feature.ColorUnknown:   "无法识别的颜色",
}

var zhTexture = map[feature.Texture]string{
	feature.TextureFormed:  "成形",
	feature.TextureSolid:   "偏硬",
	feature.TextureSoft:    "偏软",
	feature.TextureLoose:   "稀软",
	feature.TextureWatery:  "水样",
	feature.TextureTarry:   "柏油样",
	feature.TextureUnknown: "无法识别",
}

// Fallback renders the offline report by template substitution. It makes
// no network call and cannot fail.
func Fallback(rec feature.Record, lang Language) string {
	urgent := rec.Blood || rec.Worms
	if lang == LanguageEN {
		status := "normal"
		if rec.Classification != feature.ClassificationNormal {
			status = "in need of attention"
		}
		vet := "No urgent vet visit is needed at this time."
		if urgent {
			vet = "Please see a veterinarian as soon as possible."
		}
		return fmt.Sprintf(`**Health Status Summary**
Based on the AI analysis, your pet's stool appears %s.

**Detailed Analysis**
1. Color and shape: %s, texture %s
2. Abnormal indicators: %s, %s, %s
3. Overall assessment: %s

**Care Recommendations**
Keep observing your pet's bowel movements and contact a vet if anything unusual appears.

**When to See a Vet**
%s`,
			status, rec.Color, rec.Texture,
			detected(rec.Blood, "blood streaks found", "no blood"),
			detected(rec.Mucus, "mucus present", "no mucus"),
			detected(rec.Worms, "possible parasites", "no parasites seen"),
			rec.Classification, vet)
	}

	status := "正常"
	if rec.Classification != feature.ClassificationNormal {
		status = "需要关注"
	}
	vet := "暂无紧急就医需要"
	if urgent {
		vet = "建议尽快就医检查"
	}
	return fmt.Sprintf(`**健康状态评估**
基于AI分析，您的宠物粪便状况显示为%s。

**具体分析**
1. 颜色与形状：%s（%s），质地%s（%s）
2. 异常指标：%s，%s，%s
3. 整体评估：%s

**专业建议**
请继续观察宠物的排便情况，如有异常请及时就医。

**就医指导**
%s`,
		status,
		zhName(zhColor, rec.Color), rec.Color,
		zhName(zhTexture, rec.Texture), rec.Texture,
		detected(rec.Blood, "发现血丝", "无血丝"),
		detected(rec.Mucus, "有粘液", "无粘液"),
		detected(rec.Worms, "疑似寄生虫", "未见寄生虫"),
		rec.Classification, vet)
}

func zhName[T ~string](names map[T]string, v T) string {
	if n, ok := names[v]; ok {
		return n
	}
	return string(v)
}
