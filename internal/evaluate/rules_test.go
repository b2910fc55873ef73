package evaluate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/volaticloud/pulse/internal/enum"
)

func TestRule_MatchesSite_WildcardWhenEmpty(t *testing.T) {
	r := Rule{}
	assert.True(t, r.MatchesSite("site-a"))
	assert.True(t, r.MatchesSite(""))
}

func TestRule_MatchesSite_ExplicitList(t *testing.T) {
	r := Rule{SiteIDs: []string{"site-a", "site-b"}}
	assert.True(t, r.MatchesSite("site-a"))
	assert.False(t, r.MatchesSite("site-c"))
}

func TestRule_PredicateSQL(t *testing.T) {
	cases := []struct {
		op   enum.RuleOperator
		want string
	}{
		{enum.RuleOperatorGT, "value > 40"},
		{enum.RuleOperatorGE, "value >= 40"},
		{enum.RuleOperatorLT, "value < 40"},
		{enum.RuleOperatorLE, "value <= 40"},
	}

	for _, c := range cases {
		r := Rule{Operator: c.op, Threshold: 40}
		assert.Equal(t, c.want, r.PredicateSQL())
	}
}
