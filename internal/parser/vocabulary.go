package parser

import (
	"strings"

	"pet-triage-backend/internal/feature"
)

// synonym lists are checked in order; the first entry whose words occur in
// the token wins. More specific phrases come before their substrings.
type synonym[T ~string] struct {
	value T
	words []string
}

var colorSynonyms = []synonym[feature.Color]{
	{feature.ColorDarkBrown, []string{"深棕", "深褐", "dark brown", "dark_brown", "dark-brown"}},
	{feature.ColorBrown, []string{"红棕", "红褐", "棕红", "褐红", "黄褐", "黄棕", "棕黄",
		"reddish brown", "reddish-brown", "red brown", "red-brown", "yellowish brown", "yellow brown", "yellow-brown"}},
	{feature.ColorDarkRed, []string{"暗红", "深红", "血红", "红", "dark red", "dark_red", "red"}},
	{feature.ColorBlack, []string{"黑", "柏油", "black"}},
	{feature.ColorYellow, []string{"黄", "yellow"}},
	{feature.ColorGreen, []string{"绿", "green"}},
	{feature.ColorBrown, []string{"棕", "褐", "brown"}},
}

var textureSynonyms = []synonym[feature.Texture]{
	{feature.TextureTarry, []string{"柏油", "焦油", "tarry", "tar"}},
	{feature.TextureWatery, []string{"水样", "水状", "稀水", "液", "watery", "liquid"}},
	{feature.TextureLoose, []string{"不成形", "不成型", "稀", "loose", "runny"}},
	{feature.TextureSoft, []string{"软", "糊", "soft", "mushy"}},
	{feature.TextureSolid, []string{"硬", "干", "solid", "hard", "dry"}},
	{feature.TextureFormed, []string{"成形", "成型", "条状", "正常", "formed", "normal", "firm"}},
}

var consistencySynonyms = []synonym[feature.Consistency]{
	{feature.ConsistencyBloody, []string{"血", "bloody"}},
	{feature.ConsistencySticky, []string{"粘", "黏", "sticky", "slimy"}},
	{feature.ConsistencyWatery, []string{"水", "watery", "liquid"}},
	{feature.ConsistencyLoose, []string{"不成形", "不成型", "稀", "loose"}},
	{feature.ConsistencySlightlySoft, []string{"偏软", "略软", "稍软", "slightly soft", "slightly_soft", "slightly-soft"}},
	{feature.ConsistencySoft, []string{"软", "soft"}},
	{feature.ConsistencyWellFormed, []string{"成形", "成型", "良好", "well formed", "well_formed", "well-formed"}},
	{feature.ConsistencyNormal, []string{"正常", "normal"}},
}

var sizeSynonyms = []synonym[feature.Size]{
	{feature.SizeSlightlyLarge, []string{"偏大", "稍大", "略大", "slightly large", "slightly_large", "slightly-large"}},
	{feature.SizeLargeVolume, []string{"大量", "量多", "大", "large volume", "large_volume", "large"}},
	{feature.SizeSmall, []string{"偏小", "量少", "小", "少", "small"}},
	{feature.SizeNormal, []string{"正常", "适中", "normal", "medium"}},
}

var classificationSynonyms = []synonym[feature.Classification]{
	{feature.ClassificationParasitesDetected, []string{"parasites_detected", "parasites detected", "寄生虫"}},
	{feature.ClassificationSevere, []string{"severe", "严重", "危险"}},
	{feature.ClassificationMildAbnormal, []string{"mild_abnormal", "mild abnormal", "轻微异常", "mild"}},
	{feature.ClassificationAbnormal, []string{"abnormal", "异常", "不正常"}},
	{feature.ClassificationNormal, []string{"normal", "正常"}},
}

func lookup[T ~string](list []synonym[T], token string, unknown T) T {
	token = strings.TrimSpace(token)
	for _, s := range list {
		for _, w := range s.words {
			if strings.Contains(token, w) {
				return s.value
			}
		}
	}
	return unknown
}

// Flag keywords, matched as case-insensitive substrings of the whole text.
var (
	bloodKeywords = []string{"血", "blood"}
	wormKeywords  = []string{"虫", "worm", "parasite"}
	mucusKeywords = []string{"粘液", "黏液", "mucus"}
)

// Severity tiers for the keyword classification, highest first.
var severityTiers = []struct {
	class    feature.Classification
	keywords []string
}{
	{feature.ClassificationSevere, []string{"严重", "severe", "危险", "dangerous"}},
	{feature.ClassificationAbnormal, []string{"异常", "abnormal", "不正常"}},
	{feature.ClassificationMildAbnormal, []string{"轻微", "mild"}},
}

func containsAny(text string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}
