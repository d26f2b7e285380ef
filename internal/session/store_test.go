package session

import (
	"context"
	"time"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"

	"github.com/frahmantamala/performance-management/internal/identity"
)

var _ = ginkgo.Describe("MemoryStore", func() {
	var (
		store *MemoryStore
		ctx   context.Context
	)

	record := func(sessionID string, expiresIn time.Duration) Record {
		return Record{
			SessionID: sessionID,
			Identity: identity.Identity{
				ID:       "u-1001",
				Username: "alice",
				Role:     identity.RoleManager,
				RoleDetails: map[string]any{
					"department": "Engineering",
				},
			},
			ExpiresAt: time.Now().Add(expiresIn),
		}
	}

	ginkgo.BeforeEach(func() {
		store = NewMemoryStore()
		ctx = context.Background()
	})

	ginkgo.Describe("Save", func() {
		ginkgo.It("should store a live record", func() {
			gomega.Expect(store.Save(ctx, record("s-1", time.Hour))).To(gomega.Succeed())

			got, err := store.Get(ctx, "s-1")
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(got.Identity.Username).To(gomega.Equal("alice"))
		})

		ginkgo.It("should reject an empty session ID", func() {
			err := store.Save(ctx, record("", time.Hour))

			gomega.Expect(err).To(gomega.HaveOccurred())
		})

		ginkgo.It("should reject an already-expired record", func() {
			err := store.Save(ctx, record("s-1", -time.Minute))

			gomega.Expect(err).To(gomega.HaveOccurred())
		})
	})

	ginkgo.Describe("Get", func() {
		ginkgo.It("should return ErrNoSession for an unknown ID", func() {
			_, err := store.Get(ctx, "missing")

			gomega.Expect(err).To(gomega.MatchError(ErrNoSession))
		})

		ginkgo.It("should expire a record whose time has passed", func() {
			// Given
			gomega.Expect(store.Save(ctx, record("s-1", time.Hour))).To(gomega.Succeed())
			store.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

			// When
			_, err := store.Get(ctx, "s-1")

			// Then
			gomega.Expect(err).To(gomega.MatchError(ErrNoSession))
		})

		ginkgo.It("should return a detached copy of the identity", func() {
			// Given
			gomega.Expect(store.Save(ctx, record("s-1", time.Hour))).To(gomega.Succeed())

			// When
			got, err := store.Get(ctx, "s-1")
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			got.Identity.RoleDetails["department"] = "Sales"

			// Then
			again, err := store.Get(ctx, "s-1")
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(again.Identity.RoleDetails["department"]).To(gomega.Equal("Engineering"))
		})
	})

	ginkgo.Describe("Delete", func() {
		ginkgo.It("should remove an existing record", func() {
			gomega.Expect(store.Save(ctx, record("s-1", time.Hour))).To(gomega.Succeed())

			gomega.Expect(store.Delete(ctx, "s-1")).To(gomega.Succeed())

			_, err := store.Get(ctx, "s-1")
			gomega.Expect(err).To(gomega.MatchError(ErrNoSession))
		})

		ginkgo.It("should be a no-op for an absent record", func() {
			gomega.Expect(store.Delete(ctx, "never-existed")).To(gomega.Succeed())
		})
	})
})

var _ = ginkgo.Describe("MemoryRevocationList", func() {
	var (
		list *MemoryRevocationList
		ctx  context.Context
	)

	ginkgo.BeforeEach(func() {
		list = NewMemoryRevocationList()
		ctx = context.Background()
	})

	ginkgo.It("should report a revoked session as revoked", func() {
		gomega.Expect(list.Revoke(ctx, "s-1", time.Now().Add(time.Hour))).To(gomega.Succeed())

		revoked, err := list.IsRevoked(ctx, "s-1")

		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		gomega.Expect(revoked).To(gomega.BeTrue())
	})

	ginkgo.It("should report an unknown session as not revoked", func() {
		revoked, err := list.IsRevoked(ctx, "s-1")

		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		gomega.Expect(revoked).To(gomega.BeFalse())
	})

	ginkgo.It("should drop entries once the guarded token would have expired", func() {
		// Given
		gomega.Expect(list.Revoke(ctx, "s-1", time.Now().Add(time.Hour))).To(gomega.Succeed())
		list.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

		// When
		revoked, err := list.IsRevoked(ctx, "s-1")

		// Then
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		gomega.Expect(revoked).To(gomega.BeFalse())
	})

	ginkgo.It("should reject an empty session ID", func() {
		err := list.Revoke(ctx, "", time.Now().Add(time.Hour))

		gomega.Expect(err).To(gomega.HaveOccurred())
	})
})
