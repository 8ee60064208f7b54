// Package storetest holds the behavioural contract every catalog store must
// satisfy. Store packages run it from their own tests.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cheeseshop/pkg/domain"
)

// Factory returns a fresh, empty store.
type Factory func(t *testing.T) domain.PersistentStore

// RunContract exercises CRUD, cascade and atomicity semantics.
func RunContract(t *testing.T, newStore Factory) {
	t.Helper()
	t.Run("CreateAndFind", func(t *testing.T) { testCreateAndFind(t, newStore(t)) })
	t.Run("NotFound", func(t *testing.T) { testNotFound(t, newStore(t)) })
	t.Run("CreateCheeseRequiresProducer", func(t *testing.T) { testCreateCheeseRequiresProducer(t, newStore(t)) })
	t.Run("CascadeDelete", func(t *testing.T) { testCascadeDelete(t, newStore(t)) })
	t.Run("UpdateCheese", func(t *testing.T) { testUpdateCheese(t, newStore(t)) })
	t.Run("FailedTransactionRollsBack", func(t *testing.T) { testRollback(t, newStore(t)) })
	t.Run("DeleteCheese", func(t *testing.T) { testDeleteCheese(t, newStore(t)) })
}

func strPtr(s string) *string { return &s }

// SeedProducer creates a producer with valid defaults.
func SeedProducer(t *testing.T, store domain.PersistentStore, name string) domain.Producer {
	t.Helper()
	var created domain.Producer
	require.NoError(t, store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		var err error
		created, err = tx.CreateProducer(domain.Producer{
			Name:          name,
			FoundingYear:  1950,
			Region:        strPtr("Normandy"),
			OperationSize: domain.SizeFamily,
		})
		return err
	}))
	return created
}

// SeedCheese creates a cheese for producerID with valid defaults.
func SeedCheese(t *testing.T, store domain.PersistentStore, producerID int64, kind string) domain.Cheese {
	t.Helper()
	var created domain.Cheese
	require.NoError(t, store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		var err error
		created, err = tx.CreateCheese(domain.Cheese{
			ProducerID:     producerID,
			Kind:           kind,
			IsRawMilk:      true,
			ProductionDate: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
			Image:          strPtr("https://example.com/" + kind + ".png"),
			Price:          12.5,
		})
		return err
	}))
	return created
}

func testCreateAndFind(t *testing.T, store domain.PersistentStore) {
	ctx := context.Background()
	producer := SeedProducer(t, store, "Fromagerie Lebeau")
	require.Positive(t, producer.ID)
	brie := SeedCheese(t, store, producer.ID, "Brie")
	camembert := SeedCheese(t, store, producer.ID, "Camembert")
	require.NotEqual(t, brie.ID, camembert.ID)

	require.NoError(t, store.View(ctx, func(v domain.TransactionView) error {
		got, err := v.FindProducer(producer.ID)
		require.NoError(t, err)
		assert.Equal(t, "Fromagerie Lebeau", got.Name)
		require.NotNil(t, got.Region)
		assert.Equal(t, "Normandy", *got.Region)
		assert.Nil(t, got.Image)
		assert.Equal(t, domain.SizeFamily, got.OperationSize)

		cheese, err := v.FindCheese(brie.ID)
		require.NoError(t, err)
		assert.Equal(t, brie, cheese)

		byProducer, err := v.ListCheesesByProducer(producer.ID)
		require.NoError(t, err)
		require.Len(t, byProducer, 2)
		assert.Equal(t, "Brie", byProducer[0].Kind)
		assert.Equal(t, "Camembert", byProducer[1].Kind)

		producers, err := v.ListProducers()
		require.NoError(t, err)
		assert.Len(t, producers, 1)

		all, err := v.ListCheeses()
		require.NoError(t, err)
		assert.Len(t, all, 2)
		return nil
	}))
}

func testNotFound(t *testing.T, store domain.PersistentStore) {
	ctx := context.Background()
	require.NoError(t, store.View(ctx, func(v domain.TransactionView) error {
		_, err := v.FindProducer(404)
		assert.True(t, domain.IsNotFound(err))
		_, err = v.FindCheese(404)
		assert.True(t, domain.IsNotFound(err))
		cheeses, err := v.ListCheesesByProducer(404)
		assert.NoError(t, err)
		assert.Empty(t, cheeses)
		return nil
	}))
	err := store.RunInTransaction(ctx, func(tx domain.Transaction) error { return tx.DeleteProducer(404) })
	assert.True(t, domain.IsNotFound(err))
	err = store.RunInTransaction(ctx, func(tx domain.Transaction) error { return tx.DeleteCheese(404) })
	assert.True(t, domain.IsNotFound(err))
	err = store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		_, err := tx.UpdateCheese(404, func(*domain.Cheese) error { return nil })
		return err
	})
	assert.True(t, domain.IsNotFound(err))
}

func testCreateCheeseRequiresProducer(t *testing.T, store domain.PersistentStore) {
	ctx := context.Background()
	err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		_, err := tx.CreateCheese(domain.Cheese{ProducerID: 77, Kind: "Orphan", ProductionDate: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), Price: 5})
		return err
	})
	var nf domain.ErrNotFound
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, domain.EntityProducer, nf.Entity)
	require.NoError(t, store.View(ctx, func(v domain.TransactionView) error {
		all, err := v.ListCheeses()
		require.NoError(t, err)
		assert.Empty(t, all)
		return nil
	}))
}

func testCascadeDelete(t *testing.T, store domain.PersistentStore) {
	ctx := context.Background()
	doomed := SeedProducer(t, store, "Doomed Dairy")
	survivor := SeedProducer(t, store, "Survivor Creamery")
	var doomedCheeses []int64
	for _, kind := range []string{"Feta", "Halloumi", "Manouri"} {
		doomedCheeses = append(doomedCheeses, SeedCheese(t, store, doomed.ID, kind).ID)
	}
	kept := SeedCheese(t, store, survivor.ID, "Cheddar")

	require.NoError(t, store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		return tx.DeleteProducer(doomed.ID)
	}))

	require.NoError(t, store.View(ctx, func(v domain.TransactionView) error {
		_, err := v.FindProducer(doomed.ID)
		assert.True(t, domain.IsNotFound(err))
		for _, id := range doomedCheeses {
			_, err := v.FindCheese(id)
			assert.True(t, domain.IsNotFound(err), "cheese %d should be gone", id)
		}
		got, err := v.FindCheese(kept.ID)
		require.NoError(t, err)
		assert.Equal(t, survivor.ID, got.ProducerID)
		return nil
	}))
}

func testUpdateCheese(t *testing.T, store domain.PersistentStore) {
	ctx := context.Background()
	first := SeedProducer(t, store, "First")
	second := SeedProducer(t, store, "Second")
	cheese := SeedCheese(t, store, first.ID, "Gouda")

	var updated domain.Cheese
	require.NoError(t, store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		var err error
		updated, err = tx.UpdateCheese(cheese.ID, func(c *domain.Cheese) error {
			c.Price = 30
			c.Image = nil
			c.ProducerID = second.ID
			return nil
		})
		return err
	}))
	assert.Equal(t, cheese.ID, updated.ID)

	require.NoError(t, store.View(ctx, func(v domain.TransactionView) error {
		got, err := v.FindCheese(cheese.ID)
		require.NoError(t, err)
		assert.Equal(t, 30.0, got.Price)
		assert.Nil(t, got.Image)
		assert.Equal(t, second.ID, got.ProducerID)
		return nil
	}))

	err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		_, err := tx.UpdateCheese(cheese.ID, func(c *domain.Cheese) error {
			c.ProducerID = 999
			return nil
		})
		return err
	})
	assert.True(t, domain.IsNotFound(err))
}

func testRollback(t *testing.T, store domain.PersistentStore) {
	ctx := context.Background()
	producer := SeedProducer(t, store, "Rollback Farm")
	cheese := SeedCheese(t, store, producer.ID, "Tomme")
	boom := errors.New("boom")

	err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		if _, err := tx.UpdateCheese(cheese.ID, func(c *domain.Cheese) error {
			c.Price = 40
			return nil
		}); err != nil {
			return err
		}
		if err := tx.DeleteProducer(producer.ID); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	err = store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		_, err := tx.UpdateCheese(cheese.ID, func(c *domain.Cheese) error {
			c.Price = 41
			return &domain.ValidationError{Field: "price", Message: "rejected"}
		})
		return err
	})
	require.True(t, domain.IsValidation(err))

	require.NoError(t, store.View(ctx, func(v domain.TransactionView) error {
		_, err := v.FindProducer(producer.ID)
		require.NoError(t, err)
		got, err := v.FindCheese(cheese.ID)
		require.NoError(t, err)
		assert.Equal(t, 12.5, got.Price)
		return nil
	}))
}

func testDeleteCheese(t *testing.T, store domain.PersistentStore) {
	ctx := context.Background()
	producer := SeedProducer(t, store, "Delete Farm")
	cheese := SeedCheese(t, store, producer.ID, "Ricotta")
	require.NoError(t, store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		return tx.DeleteCheese(cheese.ID)
	}))
	require.NoError(t, store.View(ctx, func(v domain.TransactionView) error {
		_, err := v.FindCheese(cheese.ID)
		assert.True(t, domain.IsNotFound(err))
		_, err = v.FindProducer(producer.ID)
		assert.NoError(t, err)
		return nil
	}))
}
