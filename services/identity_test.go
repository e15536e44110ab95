package services

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/yeremiapane/cleaning-app/models"
)

func TestEnsureCodeIdempotent(t *testing.T) {
	db := setupServiceDB(t)
	svc := NewIdentityService(db)
	room := seedRoom(t, db, "Bathroom A", models.RoomCategoryBathroom)

	code, err := svc.EnsureCode(context.Background(), room.ID)
	assert.NoError(t, err)
	assert.NotEmpty(t, code)
	assert.True(t, strings.HasPrefix(code, "bathroom-bathroom-a-1st-floor-"), code)

	again, err := svc.EnsureCode(context.Background(), room.ID)
	assert.NoError(t, err)
	assert.Equal(t, code, again)

	// the code is archived forever
	var count int64
	db.Model(&models.CodeArchive{}).Where("code = ?", code).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestEnsureCodeRoundTrip(t *testing.T) {
	db := setupServiceDB(t)
	svc := NewIdentityService(db)
	room := seedRoom(t, db, "Kitchen", models.RoomCategoryKitchen)

	code, err := svc.EnsureCode(context.Background(), room.ID)
	assert.NoError(t, err)

	resolved, err := svc.Resolve(context.Background(), code)
	assert.NoError(t, err)
	assert.Equal(t, room.ID, resolved.ID)

	_, err = svc.Resolve(context.Background(), "no-such-code")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.EnsureCode(context.Background(), 9999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEnsureCodeNormalizesNonASCII(t *testing.T) {
	db := setupServiceDB(t)
	svc := NewIdentityService(db)

	room := models.Room{
		Name:     "Küche Café №3",
		Category: models.RoomCategoryKitchen,
		Location: "Étage 2",
		Status:   models.RoomStatusPending,
		Priority: models.RoomPriorityMedium,
	}
	assert.NoError(t, db.Create(&room).Error)

	code, err := svc.EnsureCode(context.Background(), room.ID)
	assert.NoError(t, err)
	assert.True(t, strings.HasPrefix(code, "kitchen-kuche-cafe-3-etage-2-"), code)
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "cafe-gunther", Slugify("Café Günther"))
	assert.Equal(t, "room-101", Slugify("  Room --- 101!!  "))
	assert.Equal(t, "", Slugify("漢字"))
	assert.Equal(t, "a-b", Slugify("a\tb"))
}

func TestPayloadURL(t *testing.T) {
	code := "bathroom-a-x9k2"
	room := &models.Room{ID: 7, Code: &code}
	assert.Equal(t, "https://clean.example.com/scan/bathroom-a-x9k2?room=7",
		PayloadURL("https://clean.example.com/", room))
}

// Two concurrent EnsureCode calls on a fresh room bind exactly one code; the
// loser observes the winner's code, never a second distinct one.
func TestEnsureCodeConcurrent(t *testing.T) {
	db := setupServiceDB(t)
	svc := NewIdentityService(db)
	room := seedRoom(t, db, "Bathroom A", models.RoomCategoryBathroom)

	const racers = 4
	codes := make([]string, racers)
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for attempt := 0; attempt < 20; attempt++ {
				code, err := svc.EnsureCode(context.Background(), room.ID)
				if err == nil {
					codes[i] = code
					return
				}
				time.Sleep(10 * time.Millisecond)
			}
		}(i)
	}
	wg.Wait()

	for i := 1; i < racers; i++ {
		assert.Equal(t, codes[0], codes[i])
	}
	assert.NotEmpty(t, codes[0])

	var archived int64
	db.Model(&models.CodeArchive{}).Where("room_id = ?", room.ID).Count(&archived)
	assert.Equal(t, int64(1), archived)
}
