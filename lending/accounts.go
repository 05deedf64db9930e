package lending

import (
	"context"
	"strings"

	"github.com/lescriminels/guild/db"
	"github.com/lescriminels/guild/models"

	"golang.org/x/crypto/bcrypt"
)

// Register creates a user. The first user ever registered becomes an
// administrator.
func (s *Service) Register(ctx context.Context, username, password string) (models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return models.User{}, validationf("username and password are required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, validationf("password cannot be hashed: %v", err)
	}

	var u models.User
	err = s.store.Update(ctx, func(tx *db.Tx) error {
		users := tx.Users()
		if _, taken := userByName(users, username); taken {
			return conflictf("username %q is taken", username)
		}
		u = models.User{
			ID:           s.ids.NewID("u_"),
			Username:     username,
			PasswordHash: string(hash),
			IsAdmin:      len(users) == 0,
		}
		tx.PutUser(u)
		return nil
	})
	if err != nil {
		return models.User{}, classify(err)
	}
	s.log.Info("user registered", "user_id", u.ID, "admin", u.IsAdmin)
	return u, nil
}

// Authenticate checks a username and password. Unknown users and wrong
// passwords fail the same way.
func (s *Service) Authenticate(ctx context.Context, username, password string) (models.User, error) {
	var u models.User
	var found bool
	err := s.store.View(ctx, func(tx *db.Tx) error {
		u, found = userByName(tx.Users(), strings.TrimSpace(username))
		return nil
	})
	if err != nil {
		return models.User{}, classify(err)
	}
	if !found || bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return models.User{}, forbiddenf("invalid credentials")
	}
	return u, nil
}

// HasUsers reports whether anyone has registered yet.
func (s *Service) HasUsers(ctx context.Context) (bool, error) {
	var n int
	err := s.store.View(ctx, func(tx *db.Tx) error {
		n = len(tx.Users())
		return nil
	})
	return n > 0, classify(err)
}

// Actor resolves the caller behind a session.
func (s *Service) Actor(ctx context.Context, userID string) (Actor, error) {
	u, err := s.User(ctx, userID)
	if err != nil {
		return Actor{}, err
	}
	return Actor{UserID: u.ID, IsAdmin: u.IsAdmin || s.admins[strings.ToLower(u.Username)]}, nil
}

func (s *Service) User(ctx context.Context, id string) (models.User, error) {
	var u models.User
	var ok bool
	if err := s.store.View(ctx, func(tx *db.Tx) error {
		u, ok = tx.User(id)
		return nil
	}); err != nil {
		return models.User{}, classify(err)
	}
	if !ok {
		return models.User{}, notFoundf("user %s not found", id)
	}
	return u, nil
}

type NewItem struct {
	Name        string
	Description string
	// OwnerID lets an administrator list an item on someone else's behalf.
	OwnerID string
}

func (s *Service) CreateItem(ctx context.Context, actor Actor, in NewItem) (models.Item, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return models.Item{}, validationf("item name is required")
	}
	owner := actor.UserID
	if in.OwnerID != "" && in.OwnerID != actor.UserID {
		if !actor.IsAdmin {
			return models.Item{}, forbiddenf("only administrators can list items for other users")
		}
		owner = in.OwnerID
	}

	var it models.Item
	err := s.store.Update(ctx, func(tx *db.Tx) error {
		if _, ok := tx.User(owner); !ok {
			return notFoundf("user %s not found", owner)
		}
		it = models.Item{
			ID:          s.ids.NewID("i_"),
			OwnerID:     owner,
			Name:        name,
			Description: strings.TrimSpace(in.Description),
			Available:   true,
		}
		tx.PutItem(it)
		return nil
	})
	if err != nil {
		return models.Item{}, classify(err)
	}
	return it, nil
}

func (s *Service) ListUsers(ctx context.Context, actor Actor) ([]models.User, error) {
	if !actor.IsAdmin {
		return nil, forbiddenf("administrators only")
	}
	var users []models.User
	err := s.store.View(ctx, func(tx *db.Tx) error {
		users = tx.Users()
		return nil
	})
	return users, classify(err)
}

func (s *Service) ListItems(ctx context.Context, actor Actor) ([]models.Item, error) {
	if !actor.IsAdmin {
		return nil, forbiddenf("administrators only")
	}
	var items []models.Item
	err := s.store.View(ctx, func(tx *db.Tx) error {
		items = tx.Items()
		return nil
	})
	return items, classify(err)
}

type UserPatch struct {
	Username *string
	IsAdmin  *bool
}

func (s *Service) UpdateUser(ctx context.Context, actor Actor, id string, p UserPatch) (models.User, error) {
	if !actor.IsAdmin {
		return models.User{}, forbiddenf("administrators only")
	}
	var u models.User
	err := s.store.Update(ctx, func(tx *db.Tx) error {
		var ok bool
		if u, ok = tx.User(id); !ok {
			return notFoundf("user %s not found", id)
		}
		if p.Username != nil {
			name := strings.TrimSpace(*p.Username)
			if name == "" {
				return validationf("username cannot be empty")
			}
			if other, taken := userByName(tx.Users(), name); taken && other.ID != id {
				return conflictf("username %q is taken", name)
			}
			u.Username = name
		}
		if p.IsAdmin != nil {
			if !*p.IsAdmin && id == actor.UserID {
				return conflictf("you cannot revoke your own administrator role")
			}
			u.IsAdmin = *p.IsAdmin
		}
		tx.PutUser(u)
		return nil
	})
	if err != nil {
		return models.User{}, classify(err)
	}
	return u, nil
}

// DeleteUser removes a user. Items and borrow records that reference the
// user are left in place.
func (s *Service) DeleteUser(ctx context.Context, actor Actor, id string) error {
	if !actor.IsAdmin {
		return forbiddenf("administrators only")
	}
	if id == actor.UserID {
		return conflictf("you cannot delete yourself")
	}
	err := s.store.Update(ctx, func(tx *db.Tx) error {
		if !tx.DeleteUser(id) {
			return notFoundf("user %s not found", id)
		}
		return nil
	})
	return classify(err)
}

type ItemPatch struct {
	Name        *string
	Description *string
}

func (s *Service) UpdateItem(ctx context.Context, actor Actor, id string, p ItemPatch) (models.Item, error) {
	if !actor.IsAdmin {
		return models.Item{}, forbiddenf("administrators only")
	}
	var it models.Item
	err := s.store.Update(ctx, func(tx *db.Tx) error {
		var ok bool
		if it, ok = tx.Item(id); !ok {
			return notFoundf("item %s not found", id)
		}
		if p.Name != nil {
			name := strings.TrimSpace(*p.Name)
			if name == "" {
				return validationf("item name cannot be empty")
			}
			it.Name = name
		}
		if p.Description != nil {
			it.Description = strings.TrimSpace(*p.Description)
		}
		tx.PutItem(it)
		return nil
	})
	if err != nil {
		return models.Item{}, classify(err)
	}
	return it, nil
}

// DeleteItem removes an item. Borrow records that reference it are left in
// place and skipped by the views.
func (s *Service) DeleteItem(ctx context.Context, actor Actor, id string) error {
	if !actor.IsAdmin {
		return forbiddenf("administrators only")
	}
	err := s.store.Update(ctx, func(tx *db.Tx) error {
		if !tx.DeleteItem(id) {
			return notFoundf("item %s not found", id)
		}
		return nil
	})
	return classify(err)
}

func userByName(users []models.User, name string) (models.User, bool) {
	for _, u := range users {
		if strings.EqualFold(u.Username, name) {
			return u, true
		}
	}
	return models.User{}, false
}
