package processor

import (
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Ramsey-B/fern/pkg/models"
)

func getTestLogger() ectologger.Logger {
	zapLogger, _ := zap.NewDevelopment()
	return zapadapter.NewZapEctoLogger(zapLogger, nil)
}

func TestProcessor_ClusterAutomatic(t *testing.T) {
	p := &Processor{logger: getTestLogger()}

	t.Run("no automatic decisions yields no clusters", func(t *testing.T) {
		decisions := []models.MergeDecision{
			{Primary: 0, Secondary: 1, Strategy: models.MergeStrategyReviewRequired},
		}
		assert.Nil(t, p.clusterAutomatic(4, decisions))
		assert.Nil(t, p.clusterAutomatic(4, nil))
	})

	t.Run("pair forms one cluster", func(t *testing.T) {
		decisions := []models.MergeDecision{
			{Primary: 2, Secondary: 0, Strategy: models.MergeStrategyAutomatic},
		}
		clusters := p.clusterAutomatic(4, decisions)
		require.Len(t, clusters, 1)
		assert.Equal(t, []int{0, 2}, clusters[0])
	})

	t.Run("transitive decisions collapse into one cluster", func(t *testing.T) {
		decisions := []models.MergeDecision{
			{Primary: 0, Secondary: 1, Strategy: models.MergeStrategyAutomatic},
			{Primary: 1, Secondary: 3, Strategy: models.MergeStrategyAutomatic},
		}
		clusters := p.clusterAutomatic(5, decisions)
		require.Len(t, clusters, 1)
		assert.Equal(t, []int{0, 1, 3}, clusters[0])
	})

	t.Run("disjoint pairs form separate clusters", func(t *testing.T) {
		decisions := []models.MergeDecision{
			{Primary: 0, Secondary: 1, Strategy: models.MergeStrategyAutomatic},
			{Primary: 4, Secondary: 2, Strategy: models.MergeStrategyAutomatic},
			{Primary: 3, Secondary: 5, Strategy: models.MergeStrategyReviewRequired},
		}
		clusters := p.clusterAutomatic(6, decisions)
		require.Len(t, clusters, 2)
		assert.Equal(t, []int{0, 1}, clusters[0])
		assert.Equal(t, []int{2, 4}, clusters[1])
	})
}
