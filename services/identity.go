package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/yeremiapane/cleaning-app/models"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"gorm.io/gorm"
)

const (
	codeSuffixLen      = 4
	codeSynthAttempts  = 5
	codeSuffixAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
)

// IdentityService assigns and resolves the unique code printed on each
// room's label. A code is bound at most once per room and never reused for
// another room, even after the room is deleted.
type IdentityService struct {
	db *gorm.DB
}

func NewIdentityService(db *gorm.DB) *IdentityService {
	return &IdentityService{db: db}
}

// EnsureCode returns the room's bound code, generating and binding one first
// if the room has none. Calling it again always returns the same code. Two
// concurrent calls on an uncoded room bind exactly one code; the loser
// observes the winner's.
func (s *IdentityService) EnsureCode(ctx context.Context, roomID uint) (string, error) {
	var code string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var room models.Room
		if err := tx.First(&room, roomID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if room.Code != nil {
			code = *room.Code
			return nil
		}

		candidate, err := s.synthesize(tx, &room)
		if err != nil {
			return err
		}

		// Bind only while the code column is still NULL; a concurrent
		// EnsureCode that committed first makes this a no-op.
		res := tx.Model(&models.Room{}).
			Where("id = ? AND code IS NULL", room.ID).
			Update("code", candidate)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var again models.Room
			if err := tx.First(&again, room.ID).Error; err != nil {
				return err
			}
			if again.Code == nil {
				return errors.New("room code binding lost")
			}
			code = *again.Code
			return nil
		}

		if err := tx.Create(&models.CodeArchive{Code: candidate, RoomID: room.ID}).Error; err != nil {
			return err
		}
		code = candidate
		return nil
	})

	if err != nil && isDuplicateKey(err) {
		// Lost a race on one of the unique code indexes; the winning call
		// has bound a code by now.
		var room models.Room
		if e := s.db.WithContext(ctx).First(&room, roomID).Error; e == nil && room.Code != nil {
			return *room.Code, nil
		}
	}
	return code, err
}

// Resolve looks a room up by its exact code.
func (s *IdentityService) Resolve(ctx context.Context, code string) (*models.Room, error) {
	var room models.Room
	if err := s.db.WithContext(ctx).Where("code = ?", code).First(&room).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &room, nil
}

// PayloadURL builds the URL embedded in the room's QR label. Rendering the
// image itself is left to the client.
func PayloadURL(baseURL string, room *models.Room) string {
	code := ""
	if room.Code != nil {
		code = *room.Code
	}
	return fmt.Sprintf("%s/scan/%s?room=%d", strings.TrimRight(baseURL, "/"), code, room.ID)
}

// synthesize builds a candidate code from the room's category, name and
// location plus a short random suffix, retrying on collision against every
// code ever issued. The timestamp fallback cannot collide at practical call
// rates.
func (s *IdentityService) synthesize(tx *gorm.DB, room *models.Room) (string, error) {
	base := Slugify(room.Category + " " + room.Name + " " + room.Location)
	if base == "" {
		base = "room"
	}

	for attempt := 0; attempt < codeSynthAttempts; attempt++ {
		candidate := base + "-" + randomSuffix(codeSuffixLen)
		var count int64
		if err := tx.Model(&models.CodeArchive{}).Where("code = ?", candidate).Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return candidate, nil
		}
	}

	return base + "-" + strconv.FormatInt(time.Now().UnixNano(), 36), nil
}

var deaccent = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Slugify folds a display string into the lowercase ascii alphabet used for
// codes. Diacritics are stripped rather than rejected; anything else outside
// [a-z0-9] becomes a separator.
func Slugify(s string) string {
	folded, _, err := transform.String(deaccent, s)
	if err != nil {
		folded = s
	}
	folded = strings.ToLower(folded)

	var b strings.Builder
	lastDash := true
	for _, r := range folded {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}

func randomSuffix(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = codeSuffixAlphabet[rand.Intn(len(codeSuffixAlphabet))]
	}
	return string(b)
}
