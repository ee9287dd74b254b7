package priority

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func genInput() gopter.Gen {
	return gopter.CombineGens(
		gen.SliceOf(gen.OneConstOf(
			LabelImportant,
			LabelStarred,
			LabelCategoryPromotions,
			LabelCategoryUpdates,
			LabelCategoryPersonal,
			"UNREAD",
			"INBOX",
		)),
		gen.OneConstOf("", "high", "low", "normal"),
		gen.OneConstOf("", "urgent", "normal"),
		gen.OneConstOf("", "1", "2", "3", "5", "1 (Highest)"),
		gen.OneConstOf(
			"a@example.com",
			"b@github.com",
			"c@google.com",
			"noreply@newsletter.example.org",
			"",
		),
		gen.IntRange(0, 200000),
	).Map(func(values []interface{}) Input {
		labels := values[0].([]string)
		return Input{
			Labels: labels,
			Headers: HeaderHints{
				Importance: values[1].(string),
				Priority:   values[2].(string),
				XPriority:  values[3].(string),
			},
			SenderEmail:  values[4].(string),
			SizeEstimate: values[5].(int),
		}
	})
}

func TestScoreProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("score stays within [0,1]", prop.ForAll(
		func(in Input) bool {
			res := Score(in)
			return res.Score >= 0 && res.Score <= 1
		},
		genInput(),
	))

	properties.Property("label always matches the threshold table", prop.ForAll(
		func(in Input) bool {
			res := Score(in)
			return res.Label == LabelForScore(res.Score)
		},
		genInput(),
	))

	properties.Property("scoring is deterministic", prop.ForAll(
		func(in Input) bool {
			return Score(in).Score == Score(in).Score
		},
		genInput(),
	))

	properties.Property("adding the important label never decreases the score", prop.ForAll(
		func(in Input) bool {
			base := Score(in)
			withImportant := in
			withImportant.Labels = append(append([]string{}, in.Labels...), LabelImportant)
			return Score(withImportant).Score >= base.Score
		},
		genInput(),
	))

	properties.Property("promotions clamp holds against positive label signals", prop.ForAll(
		func(in Input) bool {
			promo := in
			promo.Labels = append(append([]string{}, in.Labels...), LabelCategoryPromotions)
			promo.Headers = HeaderHints{}
			// Only bonus rules 5-6 may lift the clamped score, by at most 0.15.
			return Score(promo).Score <= 0.3+0.1+0.05+1e-9
		},
		genInput(),
	))

	properties.TestingRun(t)
}
