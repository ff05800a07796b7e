package parser

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"pet-triage-backend/internal/feature"
	"pet-triage-backend/internal/shared/apperr"
	"pet-triage-backend/internal/vision"
)

var fixedNow = time.Date(2026, time.June, 1, 12, 0, 0, 0, time.UTC)

func chatPayload(t *testing.T, text string) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(map[string]any{
		"choices": []any{map[string]any{"message": map[string]any{"content": text}}},
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return b
}

func newKeywordParser() *Parser {
	return New(KeywordStrategy{}, func() time.Time { return fixedNow })
}

func TestParseBloodDetected(t *testing.T) {
	raw := vision.RawOutput{Backend: vision.BackendChatCompletions, Model: "qwen/qwen2.5-vl-72b-instruct", Payload: chatPayload(t, "检测到血丝")}

	rec, err := newKeywordParser().Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !rec.Blood {
		t.Fatalf("expected blood=true")
	}
	if rec.Source != "qwen:chat_completions" {
		t.Fatalf("unexpected source %q", rec.Source)
	}
}

func TestParseNoKeywordsKeepsDefaults(t *testing.T) {
	raw := vision.RawOutput{Backend: vision.BackendDashScope, Payload: chatPayload(t, "图片清晰，看起来一切都好。")}

	rec, err := newKeywordParser().Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := feature.Defaults("dashscope", fixedNow)
	if rec != want {
		t.Fatalf("expected defaults\n got %+v\nwant %+v", rec, want)
	}
}

func TestKeywordExtractLabels(t *testing.T) {
	tests := []struct {
		name string
		text string
		want func(feature.Record) bool
	}{
		{
			name: "chinese full width labels",
			text: "1. **颜色**：深棕色\n2. 质地：软便，形状：偏软\n4. 健康评估：轻微",
			want: func(r feature.Record) bool {
				return r.Color == feature.ColorDarkBrown && r.Texture == feature.TextureSoft &&
					r.Consistency == feature.ConsistencySlightlySoft && r.Classification == feature.ClassificationMildAbnormal
			},
		},
		{
			name: "english labels",
			text: "Color: yellow. Texture: watery. Consistency: loose. Size: small. Confidence: 72%",
			want: func(r feature.Record) bool {
				return r.Color == feature.ColorYellow && r.Texture == feature.TextureWatery &&
					r.Consistency == feature.ConsistencyLoose && r.Size == feature.SizeSmall && r.Confidence == 0.72
			},
		},
		{
			name: "unmatched token is unknown",
			text: "颜色：紫色",
			want: func(r feature.Record) bool { return r.Color == feature.ColorUnknown },
		},
		{
			name: "not formed beats formed",
			text: "质地：不成形",
			want: func(r feature.Record) bool { return r.Texture == feature.TextureLoose },
		},
		{
			name: "severe outranks mild",
			text: "整体轻微变化，但有严重脱水迹象",
			want: func(r feature.Record) bool { return r.Classification == feature.ClassificationSevere },
		},
		{
			name: "abnormal tier",
			text: "The stool looks abnormal.",
			want: func(r feature.Record) bool { return r.Classification == feature.ClassificationAbnormal },
		},
		{
			name: "mucus and worms flags",
			text: "可见少量黏液，未见 parasites",
			want: func(r feature.Record) bool { return r.Mucus && r.Worms && !r.Blood },
		},
		{
			name: "decimal confidence",
			text: "confidence: 0.6",
			want: func(r feature.Record) bool { return r.Confidence == 0.6 },
		},
		{
			name: "bare percentage confidence",
			text: "confidence: 85",
			want: func(r feature.Record) bool { return r.Confidence == 0.85 },
		},
		{
			name: "confidence slightly above one is clamped",
			text: "confidence: 1.5",
			want: func(r feature.Record) bool { return r.Confidence == 1 },
		},
		{
			name: "reddish brown is brown",
			text: "颜色：红棕色",
			want: func(r feature.Record) bool { return r.Color == feature.ColorBrown },
		},
		{
			name: "english reddish brown is brown",
			text: "Color: reddish brown",
			want: func(r feature.Record) bool { return r.Color == feature.ColorBrown },
		},
		{
			name: "yellowish brown is brown",
			text: "颜色：黄褐色",
			want: func(r feature.Record) bool { return r.Color == feature.ColorBrown },
		},
		{
			name: "plain red stays dark red",
			text: "颜色：暗红色",
			want: func(r feature.Record) bool { return r.Color == feature.ColorDarkRed },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := feature.Defaults("test", fixedNow)
			if err := (KeywordStrategy{}).Extract(tt.text, &rec); err != nil {
				t.Fatalf("Extract: %v", err)
			}
			if !tt.want(rec) {
				t.Fatalf("unexpected record for %q: %+v", tt.text, rec)
			}
		})
	}
}

func TestConsistencyIndependentOfBloodFlag(t *testing.T) {
	rec := feature.Defaults("test", fixedNow)
	if err := (StructuredStrategy{}).Extract(`{"consistency":"bloody","blood":false}`, &rec); err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if rec.Consistency != feature.ConsistencyBloody {
		t.Fatalf("expected bloody consistency, got %q", rec.Consistency)
	}
	if rec.Blood {
		t.Fatalf("consistency must not set the blood flag")
	}
}

func TestParsePlaceholder(t *testing.T) {
	rec, err := newKeywordParser().Parse(vision.RawOutput{Placeholder: true})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !rec.IsPlaceholder() {
		t.Fatalf("expected placeholder record, got %+v", rec)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{name: "array payload", payload: `[1,2,3]`},
		{name: "no text fields", payload: `{"id":"x","usage":{}}`},
		{name: "empty content", payload: `{"choices":[{"message":{"content":""}}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newKeywordParser().Parse(vision.RawOutput{Backend: vision.BackendMultipart, Payload: json.RawMessage(tt.payload)})
			if !errors.Is(err, apperr.ErrParse) {
				t.Fatalf("expected ParseError, got %v", err)
			}
		})
	}
}

type panicStrategy struct{}

func (panicStrategy) Name() string { return "panic" }
func (panicStrategy) Extract(string, *feature.Record) error {
	var m map[string]int
	m["boom"] = 1
	return nil
}

func TestParseRecoversPanics(t *testing.T) {
	p := New(panicStrategy{}, nil)
	rec, err := p.Parse(vision.RawOutput{Backend: vision.BackendMultipart, Payload: json.RawMessage(`{"response":"ok"}`)})
	if !errors.Is(err, apperr.ErrParse) {
		t.Fatalf("expected ParseError from panic, got %v", err)
	}
	if rec != (feature.Record{}) {
		t.Fatalf("expected zero record on failure, got %+v", rec)
	}
}

func TestMessageTextShapes(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    string
	}{
		{name: "chat string", payload: `{"choices":[{"message":{"content":"hello"}}]}`, want: "hello"},
		{name: "chat parts", payload: `{"choices":[{"message":{"content":[{"type":"text","text":"a"},{"type":"text","text":"b"}]}}]}`, want: "a\nb"},
		{name: "dashscope choices", payload: `{"output":{"choices":[{"message":{"content":[{"text":"正常"}]}}]}}`, want: "正常"},
		{name: "dashscope text", payload: `{"output":{"text":"ok"}}`, want: "ok"},
		{name: "response", payload: `{"response":" plain "}`, want: "plain"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MessageText([]byte(tt.payload))
			if err != nil {
				t.Fatalf("MessageText: %v", err)
			}
			if got != tt.want {
				t.Fatalf("MessageText = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStructuredStrategy(t *testing.T) {
	text := "```json\n{\"color\":\"green\",\"texture\":\"soft\",\"blood\":false,\"worms\":true,\"classification\":\"parasites_detected\",\"confidence\":0.9}\n```"
	rec := feature.Defaults("test", fixedNow)
	if err := (StructuredStrategy{}).Extract(text, &rec); err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if rec.Color != feature.ColorGreen || rec.Texture != feature.TextureSoft || !rec.Worms {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if rec.Classification != feature.ClassificationParasitesDetected || rec.Confidence != 0.9 {
		t.Fatalf("unexpected classification: %+v", rec)
	}
	if rec.Consistency != feature.ConsistencyNormal {
		t.Fatalf("missing key should keep default, got %q", rec.Consistency)
	}

	bad := feature.Defaults("test", fixedNow)
	if err := (StructuredStrategy{}).Extract("no json here", &bad); !errors.Is(err, apperr.ErrParse) {
		t.Fatalf("expected ParseError, got %v", err)
	}
}

func TestNewStrategy(t *testing.T) {
	for name, want := range map[string]string{"": "keyword", "keyword": "keyword", "Structured": "structured"} {
		s, err := NewStrategy(name)
		if err != nil {
			t.Fatalf("NewStrategy(%q): %v", name, err)
		}
		if s.Name() != want {
			t.Fatalf("NewStrategy(%q) = %q", name, s.Name())
		}
	}
	if _, err := NewStrategy("llm"); !errors.Is(err, apperr.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
