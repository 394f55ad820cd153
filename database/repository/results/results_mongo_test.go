package resultsRepo

import (
	"context"
	"testing"

	"wayfarer/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func TestUpsertAndList(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("upsert", func(mt *mtest.T) {
		repo := newRepo(mt.Coll)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 0}))

		err := repo.Upsert(context.Background(), models.SearchRecord{SessionID: "s1", Phase: 1, Summary: "Rome"})
		require.NoError(mt, err)
	})

	mt.Run("upsert failure", func(mt *mtest.T) {
		repo := newRepo(mt.Coll)
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 2, Message: "bad", Name: "BadValue"}))

		err := repo.Upsert(context.Background(), models.SearchRecord{SessionID: "s1", Phase: 1})
		assert.Error(mt, err)
	})

	mt.Run("list", func(mt *mtest.T) {
		repo := newRepo(mt.Coll)
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch,
			bson.D{{Key: "sessionId", Value: "s1"}, {Key: "phase", Value: 1}, {Key: "summary", Value: "Rome"}},
			bson.D{{Key: "sessionId", Value: "s1"}, {Key: "phase", Value: 2}, {Key: "summary", Value: "Florence"}},
		))

		records, err := repo.ListBySession(context.Background(), "s1")
		require.NoError(mt, err)
		require.Len(mt, records, 2)
		assert.Equal(mt, 2, records[1].Phase)
		assert.Equal(mt, "Florence", records[1].Summary)
	})

	mt.Run("indexes", func(mt *mtest.T) {
		repo := newRepo(mt.Coll)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		require.NoError(mt, repo.EnsureIndexes(context.Background()))
	})
}
