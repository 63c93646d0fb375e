package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"shakti-shield/internal/models"
	"shakti-shield/internal/repositories/interfaces"
	"shakti-shield/internal/utils"
	"shakti-shield/internal/validators"
	"shakti-shield/pkg/cache"
	"shakti-shield/pkg/logger"
)

const contactsLockTTL = 10 * time.Second

type ContactService interface {
	List(ctx context.Context, userID primitive.ObjectID) ([]models.TrustedContact, error)
	Add(ctx context.Context, userID primitive.ObjectID, req *models.ContactRequest) (*models.TrustedContact, error)
	Update(ctx context.Context, userID, contactID primitive.ObjectID, req *models.ContactRequest) (*models.TrustedContact, error)
	Delete(ctx context.Context, userID, contactID primitive.ObjectID) error
	SetPrimary(ctx context.Context, userID, contactID primitive.ObjectID) (*models.TrustedContact, error)
	GetPrimary(ctx context.Context, userID primitive.ObjectID) (*models.TrustedContact, error)
	Import(ctx context.Context, userID primitive.ObjectID, req *models.ImportContactsRequest) (*models.ImportContactsResult, error)
}

type contactService struct {
	userRepo interfaces.UserRepository
	locker   cache.Locker
	logger   *logger.Logger
}

func NewContactService(userRepo interfaces.UserRepository, locker cache.Locker, log *logger.Logger) ContactService {
	if locker == nil {
		locker = cache.NewMemoryLocker()
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &contactService{userRepo: userRepo, locker: locker, logger: log}
}

func (s *contactService) List(ctx context.Context, userID primitive.ObjectID) ([]models.TrustedContact, error) {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.TrustedContacts == nil {
		return []models.TrustedContact{}, nil
	}
	return user.TrustedContacts, nil
}

func (s *contactService) Add(ctx context.Context, userID primitive.ObjectID, req *models.ContactRequest) (*models.TrustedContact, error) {
	if errs := validators.ValidateContactRequest(req); len(errs) > 0 {
		return nil, errs
	}

	var added models.TrustedContact
	err := s.mutate(ctx, userID, func(contacts []models.TrustedContact) ([]models.TrustedContact, error) {
		phone := strings.TrimSpace(req.Phone)
		if indexByPhone(contacts, phone, primitive.NilObjectID) >= 0 {
			return nil, ErrDuplicateContact
		}
		if req.IsPrimary {
			clearPrimary(contacts)
		}
		added = newTrustedContact(req)
		return append(contacts, added), nil
	})
	if err != nil {
		return nil, err
	}

	return &added, nil
}

func (s *contactService) Update(ctx context.Context, userID, contactID primitive.ObjectID, req *models.ContactRequest) (*models.TrustedContact, error) {
	if errs := validators.ValidateContactRequest(req); len(errs) > 0 {
		return nil, errs
	}

	var updated models.TrustedContact
	err := s.mutate(ctx, userID, func(contacts []models.TrustedContact) ([]models.TrustedContact, error) {
		i := indexByID(contacts, contactID)
		if i < 0 {
			return nil, ErrContactNotFound
		}

		phone := strings.TrimSpace(req.Phone)
		if indexByPhone(contacts, phone, contactID) >= 0 {
			return nil, ErrDuplicateContact
		}
		if req.IsPrimary {
			clearPrimary(contacts)
		}

		c := &contacts[i]
		c.Name = strings.TrimSpace(req.Name)
		c.Phone = phone
		c.Email = utils.NormalizeEmail(req.Email)
		if req.Relationship != "" {
			c.Relationship = req.Relationship
		}
		c.IsPrimary = req.IsPrimary
		updated = *c
		return contacts, nil
	})
	if err != nil {
		return nil, err
	}

	return &updated, nil
}

func (s *contactService) Delete(ctx context.Context, userID, contactID primitive.ObjectID) error {
	return s.mutate(ctx, userID, func(contacts []models.TrustedContact) ([]models.TrustedContact, error) {
		i := indexByID(contacts, contactID)
		if i < 0 {
			return nil, ErrContactNotFound
		}
		return append(contacts[:i], contacts[i+1:]...), nil
	})
}

func (s *contactService) SetPrimary(ctx context.Context, userID, contactID primitive.ObjectID) (*models.TrustedContact, error) {
	var primary models.TrustedContact
	err := s.mutate(ctx, userID, func(contacts []models.TrustedContact) ([]models.TrustedContact, error) {
		i := indexByID(contacts, contactID)
		if i < 0 {
			return nil, ErrContactNotFound
		}
		clearPrimary(contacts)
		contacts[i].IsPrimary = true
		primary = contacts[i]
		return contacts, nil
	})
	if err != nil {
		return nil, err
	}

	return &primary, nil
}

// GetPrimary returns nil when no contact is marked primary.
func (s *contactService) GetPrimary(ctx context.Context, userID primitive.ObjectID) (*models.TrustedContact, error) {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i := range user.TrustedContacts {
		if user.TrustedContacts[i].IsPrimary {
			c := user.TrustedContacts[i]
			return &c, nil
		}
	}
	return nil, nil
}

// Import adds every contact whose phone is not already present. Duplicates,
// including duplicates within the batch, are reported as skipped.
func (s *contactService) Import(ctx context.Context, userID primitive.ObjectID, req *models.ImportContactsRequest) (*models.ImportContactsResult, error) {
	if errs := validators.ValidateImportContactsRequest(req); len(errs) > 0 {
		return nil, errs
	}

	result := &models.ImportContactsResult{
		Imported: []models.TrustedContact{},
		Skipped:  []models.SkippedContact{},
	}

	err := s.mutate(ctx, userID, func(contacts []models.TrustedContact) ([]models.TrustedContact, error) {
		for i := range req.Contacts {
			item := req.Contacts[i]
			phone := strings.TrimSpace(item.Phone)
			if indexByPhone(contacts, phone, primitive.NilObjectID) >= 0 {
				result.Skipped = append(result.Skipped, models.SkippedContact{
					Name:   item.Name,
					Phone:  item.Phone,
					Reason: "Contact already exists",
				})
				continue
			}

			item.IsPrimary = false
			c := newTrustedContact(&item)
			contacts = append(contacts, c)
			result.Imported = append(result.Imported, c)
		}
		return contacts, nil
	})
	if err != nil {
		return nil, err
	}

	result.TotalImported = len(result.Imported)
	result.TotalSkipped = len(result.Skipped)

	s.logger.WithUserID(userID).WithFields(map[string]interface{}{
		"imported": result.TotalImported,
		"skipped":  result.TotalSkipped,
	}).Info("Contacts imported")

	return result, nil
}

// mutate loads the contact list, applies fn and writes the whole list back
// while holding the user's contacts lock.
func (s *contactService) mutate(ctx context.Context, userID primitive.ObjectID, fn func([]models.TrustedContact) ([]models.TrustedContact, error)) error {
	release, err := s.locker.Acquire(ctx, utils.CacheContactsLockPrefix+userID.Hex(), contactsLockTTL)
	if err != nil {
		return fmt.Errorf("failed to lock contacts: %w", err)
	}
	defer release()

	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return err
	}

	contacts, err := fn(append([]models.TrustedContact(nil), user.TrustedContacts...))
	if err != nil {
		return err
	}

	if err := s.userRepo.SetTrustedContacts(ctx, userID, contacts); err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to save contacts: %w", err)
	}

	return nil
}

func (s *contactService) loadUser(ctx context.Context, userID primitive.ObjectID) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return user, nil
}

func newTrustedContact(req *models.ContactRequest) models.TrustedContact {
	relationship := req.Relationship
	if relationship == "" {
		relationship = models.RelationshipFriend
	}
	return models.TrustedContact{
		ID:           primitive.NewObjectID(),
		Name:         strings.TrimSpace(req.Name),
		Phone:        strings.TrimSpace(req.Phone),
		Email:        utils.NormalizeEmail(req.Email),
		Relationship: relationship,
		IsPrimary:    req.IsPrimary,
	}
}

func indexByID(contacts []models.TrustedContact, id primitive.ObjectID) int {
	for i := range contacts {
		if contacts[i].ID == id {
			return i
		}
	}
	return -1
}

// indexByPhone compares normalized numbers and ignores the contact with id
// skip.
func indexByPhone(contacts []models.TrustedContact, phone string, skip primitive.ObjectID) int {
	phone = utils.NormalizePhone(phone)
	for i := range contacts {
		if contacts[i].ID != skip && utils.NormalizePhone(contacts[i].Phone) == phone {
			return i
		}
	}
	return -1
}

func clearPrimary(contacts []models.TrustedContact) {
	for i := range contacts {
		contacts[i].IsPrimary = false
	}
}
