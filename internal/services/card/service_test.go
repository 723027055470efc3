package card

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"cardvault/internal/cardcrypto"
	"cardvault/internal/models"
	"cardvault/internal/repositories"
	"cardvault/internal/services/authz"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCardRepo struct {
	cards map[uuid.UUID]models.Card
}

func newFakeCardRepo() *fakeCardRepo {
	return &fakeCardRepo{cards: make(map[uuid.UUID]models.Card)}
}

func (r *fakeCardRepo) Create(card *models.Card) error {
	for _, c := range r.cards {
		if c.Mask == card.Mask {
			return repositories.ErrDuplicateMask
		}
	}
	if card.ID == uuid.Nil {
		card.ID = uuid.New()
	}
	card.CreatedAt = time.Now()
	card.UpdatedAt = card.CreatedAt
	r.cards[card.ID] = *card
	return nil
}

func (r *fakeCardRepo) GetByID(id uuid.UUID) (*models.Card, error) {
	card, ok := r.cards[id]
	if !ok {
		return nil, repositories.ErrCardNotFound
	}
	return &card, nil
}

func (r *fakeCardRepo) FindByOwner(ownerID uuid.UUID, maskFilter string, status models.CardStatus, limit, offset int) ([]models.Card, int64, error) {
	var out []models.Card
	for _, c := range r.cards {
		if c.OwnerID != ownerID {
			continue
		}
		if maskFilter != "" && !strings.Contains(strings.ToLower(c.Mask), strings.ToLower(maskFilter)) {
			continue
		}
		if status != "" && c.Status != status {
			continue
		}
		out = append(out, c)
	}
	return out, int64(len(out)), nil
}

func (r *fakeCardRepo) FindAll(limit, offset int) ([]models.Card, int64, error) {
	var out []models.Card
	for _, c := range r.cards {
		out = append(out, c)
	}
	return out, int64(len(out)), nil
}

func (r *fakeCardRepo) Update(card *models.Card) error {
	stored, ok := r.cards[card.ID]
	if !ok {
		return repositories.ErrCardNotFound
	}
	if stored.Version != card.Version {
		return repositories.ErrVersionConflict
	}
	card.Version++
	card.UpdatedAt = time.Now()
	r.cards[card.ID] = *card
	return nil
}

func (r *fakeCardRepo) Delete(id uuid.UUID) error {
	if _, ok := r.cards[id]; !ok {
		return repositories.ErrCardNotFound
	}
	delete(r.cards, id)
	return nil
}

func (r *fakeCardRepo) FindDueForExpiry(asOf time.Time) ([]models.Card, error) {
	var out []models.Card
	for _, c := range r.cards {
		if !c.ExpiryDate.After(asOf) && c.Status != models.CardStatusExpired {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *fakeCardRepo) CreateTransfer(*models.Transfer) error { return nil }

func (r *fakeCardRepo) ExecuteInTransaction(fn func(repositories.CardRepository) error) error {
	return fn(r)
}

type fakeUserRepo struct {
	users map[uuid.UUID]models.User
}

func newFakeUserRepo(users ...models.User) *fakeUserRepo {
	r := &fakeUserRepo{users: make(map[uuid.UUID]models.User)}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *fakeUserRepo) Create(user *models.User) error {
	r.users[user.ID] = *user
	return nil
}

func (r *fakeUserRepo) GetByID(id uuid.UUID) (*models.User, error) {
	user, ok := r.users[id]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	return &user, nil
}

func (r *fakeUserRepo) GetByEmail(email string) (*models.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, repositories.ErrUserNotFound
}

func (r *fakeUserRepo) GetAllPaginated(limit, offset int) ([]models.User, int64, error) {
	return nil, 0, nil
}

func (r *fakeUserRepo) Update(user *models.User) error {
	r.users[user.ID] = *user
	return nil
}

func (r *fakeUserRepo) Delete(id uuid.UUID) error {
	delete(r.users, id)
	return nil
}

func (r *fakeUserRepo) IncrementTokenVersion(uuid.UUID) error { return nil }

var (
	adminPrincipal = authz.Principal{UserID: uuid.New(), Role: models.RoleAdmin}
	futureExpiry   = time.Now().AddDate(3, 0, 0)
)

func newTestService(t *testing.T, owner models.User) (Service, *fakeCardRepo) {
	t.Helper()
	cipher, err := cardcrypto.NewCipher([]byte("0123456789abcdef"))
	require.NoError(t, err)
	repo := newFakeCardRepo()
	return NewService(repo, newFakeUserRepo(owner), cipher, nil), repo
}

func testOwner() models.User {
	return models.User{ID: uuid.New(), Email: "owner@example.com", Role: models.RoleUser}
}

func TestService_Create(t *testing.T) {
	owner := testOwner()

	t.Run("success", func(t *testing.T) {
		svc, repo := newTestService(t, owner)

		view, err := svc.Create(context.Background(), adminPrincipal, CreateCardInput{
			OwnerID:        owner.ID,
			Number:         "1234567812345678",
			ExpiryDate:     futureExpiry,
			InitialBalance: 250.75,
		})
		require.NoError(t, err)

		assert.Equal(t, "**** **** **** 5678", view.Mask)
		assert.Equal(t, models.CardStatusActive, view.Status)
		assert.Equal(t, 250.75, view.Balance)
		assert.NotEqual(t, uuid.Nil, view.ID)

		stored := repo.cards[view.ID]
		assert.NotEmpty(t, stored.NumberCipher)
		assert.NotContains(t, stored.NumberCipher, "1234567812345678")
		assert.Equal(t, owner.ID, stored.OwnerID)
		assert.Equal(t, int64(25075), stored.Balance)
	})

	t.Run("zero balance default", func(t *testing.T) {
		svc, _ := newTestService(t, owner)

		view, err := svc.Create(context.Background(), adminPrincipal, CreateCardInput{
			OwnerID:    owner.ID,
			Number:     "1234567812345678",
			ExpiryDate: futureExpiry,
		})
		require.NoError(t, err)
		assert.Equal(t, 0.0, view.Balance)
	})

	t.Run("validation failures", func(t *testing.T) {
		svc, _ := newTestService(t, owner)

		tests := []struct {
			name    string
			in      CreateCardInput
			wantErr error
		}{
			{
				name:    "short number",
				in:      CreateCardInput{OwnerID: owner.ID, Number: "12345678", ExpiryDate: futureExpiry},
				wantErr: ErrInvalidCardNumber,
			},
			{
				name:    "non numeric number",
				in:      CreateCardInput{OwnerID: owner.ID, Number: "12345678abcd5678", ExpiryDate: futureExpiry},
				wantErr: ErrInvalidCardNumber,
			},
			{
				name:    "past expiry",
				in:      CreateCardInput{OwnerID: owner.ID, Number: "1234567812345678", ExpiryDate: time.Now().AddDate(-1, 0, 0)},
				wantErr: ErrExpiryNotFuture,
			},
			{
				name:    "negative balance",
				in:      CreateCardInput{OwnerID: owner.ID, Number: "1234567812345678", ExpiryDate: futureExpiry, InitialBalance: -1},
				wantErr: ErrNegativeBalance,
			},
			{
				name:    "missing owner",
				in:      CreateCardInput{OwnerID: uuid.New(), Number: "1234567812345678", ExpiryDate: futureExpiry},
				wantErr: repositories.ErrUserNotFound,
			},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := svc.Create(context.Background(), adminPrincipal, tt.in)
				assert.ErrorIs(t, err, tt.wantErr)
			})
		}
	})

	t.Run("duplicate mask", func(t *testing.T) {
		svc, _ := newTestService(t, owner)

		first := CreateCardInput{OwnerID: owner.ID, Number: "1111222233335678", ExpiryDate: futureExpiry}
		_, err := svc.Create(context.Background(), adminPrincipal, first)
		require.NoError(t, err)

		// different number, same last four, same mask
		second := CreateCardInput{OwnerID: owner.ID, Number: "9999888877775678", ExpiryDate: futureExpiry}
		_, err = svc.Create(context.Background(), adminPrincipal, second)
		assert.ErrorIs(t, err, repositories.ErrDuplicateMask)
	})

	t.Run("non admin denied", func(t *testing.T) {
		svc, _ := newTestService(t, owner)

		_, err := svc.Create(context.Background(), authz.Principal{UserID: owner.ID, Role: models.RoleUser}, CreateCardInput{
			OwnerID:    owner.ID,
			Number:     "1234567812345678",
			ExpiryDate: futureExpiry,
		})
		assert.ErrorIs(t, err, authz.ErrForbidden)
	})
}

func createCard(t *testing.T, svc Service, ownerID uuid.UUID, number string) uuid.UUID {
	t.Helper()
	view, err := svc.Create(context.Background(), adminPrincipal, CreateCardInput{
		OwnerID:        ownerID,
		Number:         number,
		ExpiryDate:     futureExpiry,
		InitialBalance: 100,
	})
	require.NoError(t, err)
	return view.ID
}

func TestService_Get(t *testing.T) {
	owner := testOwner()
	svc, _ := newTestService(t, owner)
	cardID := createCard(t, svc, owner.ID, "1234567812345678")

	ownerP := authz.Principal{UserID: owner.ID, Role: models.RoleUser}
	strangerP := authz.Principal{UserID: uuid.New(), Role: models.RoleUser}

	t.Run("owner reads own card", func(t *testing.T) {
		view, err := svc.Get(context.Background(), ownerP, cardID)
		require.NoError(t, err)
		assert.Equal(t, "**** **** **** 5678", view.Mask)
	})

	t.Run("admin reads any card", func(t *testing.T) {
		_, err := svc.Get(context.Background(), adminPrincipal, cardID)
		assert.NoError(t, err)
	})

	t.Run("stranger denied", func(t *testing.T) {
		_, err := svc.Get(context.Background(), strangerP, cardID)
		assert.ErrorIs(t, err, authz.ErrForbidden)
	})

	t.Run("missing card", func(t *testing.T) {
		_, err := svc.Get(context.Background(), adminPrincipal, uuid.New())
		assert.ErrorIs(t, err, repositories.ErrCardNotFound)
	})
}

func TestService_List(t *testing.T) {
	owner := testOwner()
	svc, _ := newTestService(t, owner)
	createCard(t, svc, owner.ID, "1234567812345678")
	createCard(t, svc, owner.ID, "1234567812349999")

	ownerP := authz.Principal{UserID: owner.ID, Role: models.RoleUser}

	t.Run("owner lists own cards", func(t *testing.T) {
		views, total, err := svc.List(context.Background(), ownerP, owner.ID, ListFilter{}, 10, 0)
		require.NoError(t, err)
		assert.EqualValues(t, 2, total)
		assert.Len(t, views, 2)
	})

	t.Run("mask filter", func(t *testing.T) {
		views, total, err := svc.List(context.Background(), ownerP, owner.ID, ListFilter{Mask: "9999"}, 10, 0)
		require.NoError(t, err)
		assert.EqualValues(t, 1, total)
		require.Len(t, views, 1)
		assert.Equal(t, "**** **** **** 9999", views[0].Mask)
	})

	t.Run("status filter", func(t *testing.T) {
		views, _, err := svc.List(context.Background(), ownerP, owner.ID,
			ListFilter{Status: string(models.CardStatusBlocked)}, 10, 0)
		require.NoError(t, err)
		assert.Empty(t, views)
	})

	t.Run("stranger denied", func(t *testing.T) {
		_, _, err := svc.List(context.Background(), authz.Principal{UserID: uuid.New(), Role: models.RoleUser}, owner.ID, ListFilter{}, 10, 0)
		assert.ErrorIs(t, err, authz.ErrForbidden)
	})

	t.Run("list all is admin only", func(t *testing.T) {
		_, _, err := svc.ListAll(context.Background(), ownerP, 10, 0)
		assert.ErrorIs(t, err, authz.ErrForbidden)

		views, total, err := svc.ListAll(context.Background(), adminPrincipal, 10, 0)
		require.NoError(t, err)
		assert.EqualValues(t, 2, total)
		assert.Len(t, views, 2)
	})
}

func TestService_Lifecycle(t *testing.T) {
	owner := testOwner()
	ownerP := authz.Principal{UserID: owner.ID, Role: models.RoleUser}

	t.Run("admin block then activate", func(t *testing.T) {
		svc, repo := newTestService(t, owner)
		cardID := createCard(t, svc, owner.ID, "1234567812345678")

		require.NoError(t, svc.Block(context.Background(), adminPrincipal, cardID))
		assert.Equal(t, models.CardStatusBlocked, repo.cards[cardID].Status)

		require.NoError(t, svc.Activate(context.Background(), adminPrincipal, cardID))
		assert.Equal(t, models.CardStatusActive, repo.cards[cardID].Status)
	})

	t.Run("illegal transitions", func(t *testing.T) {
		svc, _ := newTestService(t, owner)
		cardID := createCard(t, svc, owner.ID, "1234567812345678")

		// card is ACTIVE: activating again is not a legal transition
		assert.ErrorIs(t, svc.Activate(context.Background(), adminPrincipal, cardID), ErrInvalidStateTransition)

		require.NoError(t, svc.Block(context.Background(), adminPrincipal, cardID))
		assert.ErrorIs(t, svc.Block(context.Background(), adminPrincipal, cardID), ErrInvalidStateTransition)
	})

	t.Run("owner requests block", func(t *testing.T) {
		svc, repo := newTestService(t, owner)
		cardID := createCard(t, svc, owner.ID, "1234567812345678")

		require.NoError(t, svc.RequestBlock(context.Background(), ownerP, cardID))
		assert.Equal(t, models.CardStatusBlocked, repo.cards[cardID].Status)
	})

	t.Run("stranger request block denied and status unchanged", func(t *testing.T) {
		svc, repo := newTestService(t, owner)
		cardID := createCard(t, svc, owner.ID, "1234567812345678")

		stranger := authz.Principal{UserID: uuid.New(), Role: models.RoleUser}
		assert.ErrorIs(t, svc.RequestBlock(context.Background(), stranger, cardID), authz.ErrForbidden)
		assert.Equal(t, models.CardStatusActive, repo.cards[cardID].Status)
	})

	t.Run("non admin cannot use administrative block", func(t *testing.T) {
		svc, _ := newTestService(t, owner)
		cardID := createCard(t, svc, owner.ID, "1234567812345678")

		assert.ErrorIs(t, svc.Block(context.Background(), ownerP, cardID), authz.ErrForbidden)
	})
}

func TestService_GetBalance(t *testing.T) {
	owner := testOwner()
	svc, _ := newTestService(t, owner)
	cardID := createCard(t, svc, owner.ID, "1234567812345678")

	t.Run("owner reads balance", func(t *testing.T) {
		balance, err := svc.GetBalance(context.Background(), authz.Principal{UserID: owner.ID, Role: models.RoleUser}, cardID)
		require.NoError(t, err)
		assert.Equal(t, 100.0, balance)
	})

	t.Run("admin reads any balance", func(t *testing.T) {
		_, err := svc.GetBalance(context.Background(), adminPrincipal, cardID)
		assert.NoError(t, err)
	})

	t.Run("stranger denied", func(t *testing.T) {
		_, err := svc.GetBalance(context.Background(), authz.Principal{UserID: uuid.New(), Role: models.RoleUser}, cardID)
		assert.ErrorIs(t, err, authz.ErrForbidden)
	})
}

func TestService_Update(t *testing.T) {
	owner := testOwner()
	svc, repo := newTestService(t, owner)
	cardID := createCard(t, svc, owner.ID, "1234567812345678")
	balanceBefore := repo.cards[cardID].Balance

	view, err := svc.Update(context.Background(), adminPrincipal, cardID, UpdateCardInput{
		Number:     "8765432187654321",
		ExpiryDate: futureExpiry.AddDate(1, 0, 0),
	})
	require.NoError(t, err)

	assert.Equal(t, "**** **** **** 4321", view.Mask)
	assert.Equal(t, balanceBefore, repo.cards[cardID].Balance)
	assert.Equal(t, models.CardStatusActive, repo.cards[cardID].Status)

	t.Run("invalid number rejected", func(t *testing.T) {
		_, err := svc.Update(context.Background(), adminPrincipal, cardID, UpdateCardInput{
			Number:     "bad",
			ExpiryDate: futureExpiry,
		})
		assert.ErrorIs(t, err, ErrInvalidCardNumber)
	})

	t.Run("non admin denied", func(t *testing.T) {
		_, err := svc.Update(context.Background(), authz.Principal{UserID: owner.ID, Role: models.RoleUser}, cardID, UpdateCardInput{
			Number:     "8765432187654321",
			ExpiryDate: futureExpiry,
		})
		assert.ErrorIs(t, err, authz.ErrForbidden)
	})
}

func TestService_Delete(t *testing.T) {
	owner := testOwner()
	svc, repo := newTestService(t, owner)
	cardID := createCard(t, svc, owner.ID, "1234567812345678")

	t.Run("non admin denied", func(t *testing.T) {
		err := svc.Delete(context.Background(), authz.Principal{UserID: owner.ID, Role: models.RoleUser}, cardID)
		assert.ErrorIs(t, err, authz.ErrForbidden)
	})

	t.Run("admin deletes", func(t *testing.T) {
		require.NoError(t, svc.Delete(context.Background(), adminPrincipal, cardID))
		assert.Empty(t, repo.cards)
	})

	t.Run("missing card", func(t *testing.T) {
		err := svc.Delete(context.Background(), adminPrincipal, uuid.New())
		assert.ErrorIs(t, err, repositories.ErrCardNotFound)
	})
}

func TestService_ExpireDue(t *testing.T) {
	owner := testOwner()
	svc, repo := newTestService(t, owner)
	cardID := createCard(t, svc, owner.ID, "1234567812345678")

	// nothing due yet
	n, err := svc.ExpireDue(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Zero(t, n)

	// past the expiry date the sweep marks the card EXPIRED
	n, err = svc.ExpireDue(context.Background(), futureExpiry.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, models.CardStatusExpired, repo.cards[cardID].Status)

	// the sweep is idempotent
	n, err = svc.ExpireDue(context.Background(), futureExpiry.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Zero(t, n)
}

// conflictOnceRepo fails the first update of a given card with a wrapped
// version conflict, the way the SQL layer surfaces lost races.
type conflictOnceRepo struct {
	*fakeCardRepo
	conflictID uuid.UUID
	fired      bool
}

func (r *conflictOnceRepo) Update(card *models.Card) error {
	if card.ID == r.conflictID && !r.fired {
		r.fired = true
		return fmt.Errorf("failed to update card: %w", repositories.ErrVersionConflict)
	}
	return r.fakeCardRepo.Update(card)
}

func TestService_ExpireDueSkipsConflictedCard(t *testing.T) {
	owner := testOwner()
	cipher, err := cardcrypto.NewCipher([]byte("0123456789abcdef"))
	require.NoError(t, err)

	base := newFakeCardRepo()
	contested := models.Card{
		ID:         uuid.New(),
		Mask:       "**** **** **** 1111",
		OwnerID:    owner.ID,
		ExpiryDate: time.Now().AddDate(0, -1, 0),
		Status:     models.CardStatusActive,
	}
	quiet := models.Card{
		ID:         uuid.New(),
		Mask:       "**** **** **** 2222",
		OwnerID:    owner.ID,
		ExpiryDate: time.Now().AddDate(0, -1, 0),
		Status:     models.CardStatusActive,
	}
	require.NoError(t, base.Create(&contested))
	require.NoError(t, base.Create(&quiet))

	repo := &conflictOnceRepo{fakeCardRepo: base, conflictID: contested.ID}
	svc := NewService(repo, newFakeUserRepo(owner), cipher, nil)

	// the contested card loses its race and is skipped, not fatal
	n, err := svc.ExpireDue(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, models.CardStatusActive, base.cards[contested.ID].Status)

	// the next sweep picks it up
	n, err = svc.ExpireDue(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, models.CardStatusExpired, base.cards[contested.ID].Status)
}
