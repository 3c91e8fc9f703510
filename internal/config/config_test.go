package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsLearnersToTotalNodesWhenUnset(t *testing.T) {
	t.Setenv("TOTAL_PROCESSOS_NUM", "5")
	t.Setenv("PROPOSITORES_ATIVOS_NUM", "1")
	t.Setenv("PORTA_BASE", "9000")
	t.Setenv("TIMEOUT", "1.0")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, cfg.TotalNodes, cfg.Learners, "APRENDIZES_NUM unset must default to TOTAL_PROCESSOS_NUM")
}

func TestLoadHonorsExplicitLearners(t *testing.T) {
	t.Setenv("TOTAL_PROCESSOS_NUM", "5")
	t.Setenv("PROPOSITORES_ATIVOS_NUM", "1")
	t.Setenv("APRENDIZES_NUM", "0")
	t.Setenv("PORTA_BASE", "9000")
	t.Setenv("TIMEOUT", "1.0")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.Learners, "an explicit APRENDIZES_NUM=0 must not be overridden by the default")
}

func TestQuorumSizeIsMajority(t *testing.T) {
	cases := map[int]int{3: 2, 5: 3, 7: 4, 9: 5}
	for n, want := range cases {
		cfg := Config{TotalNodes: n}
		assert.Equal(t, want, cfg.QuorumSize(), "N=%d", n)
	}
}

func TestIDRanges(t *testing.T) {
	cfg := Config{TotalNodes: 5, ActiveProposers: 2, Learners: 2}
	assert.Equal(t, []int{0, 1}, cfg.ProposerIDs())
	assert.Equal(t, []int{0, 1, 2, 3, 4}, cfg.AcceptorIDs())
	assert.Equal(t, []int{5, 6}, cfg.LearnerIDs())

	assert.True(t, cfg.IsProposer(0))
	assert.False(t, cfg.IsProposer(2))
	assert.True(t, cfg.IsAcceptor(4))
	assert.False(t, cfg.IsAcceptor(5))
	assert.True(t, cfg.IsLearner(5))
	assert.False(t, cfg.IsLearner(4))
}

func TestTimeoutConversion(t *testing.T) {
	cfg := Config{TimeoutSeconds: 1.5}
	assert.Equal(t, 1500*time.Millisecond, cfg.Timeout())
}

func TestValidateRejectsEvenTotalNodes(t *testing.T) {
	cfg := Config{TotalNodes: 4, BasePort: 9000, TimeoutSeconds: 1}
	err := validate(cfg)
	require.Error(t, err, "even TOTAL_PROCESSOS_NUM must be rejected, not silently truncated")
}

func TestValidateRejectsTooManyProposers(t *testing.T) {
	cfg := Config{TotalNodes: 3, ActiveProposers: 5, BasePort: 9000, TimeoutSeconds: 1}
	err := validate(cfg)
	require.Error(t, err)
}

func TestValidateAcceptsWellFormedConfig(t *testing.T) {
	cfg := Config{TotalNodes: 5, ActiveProposers: 1, Learners: 1, BasePort: 9000, TimeoutSeconds: 2}
	assert.NoError(t, validate(cfg))
}
