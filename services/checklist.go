package services

import "github.com/yeremiapane/cleaning-app/models"

// Required checklist items per room category. The set is fixed; rooms of the
// same category always gate completion on the same items.
var requiredItemsByCategory = map[string][]string{
	models.RoomCategoryBathroom: {"toilet", "sink", "mirror", "floor", "soap", "paper"},
	models.RoomCategoryKitchen:  {"counters", "sink", "appliances", "floor", "trash"},
	models.RoomCategoryMeeting:  {"table", "chairs", "whiteboard", "floor", "trash"},
	models.RoomCategoryGeneric:  {"surfaces", "floor", "trash"},
}

// RequiredItems returns the checklist items that gate completion for a room
// category. Unknown categories fall back to the generic set.
func RequiredItems(category string) []string {
	if items, ok := requiredItemsByCategory[category]; ok {
		return items
	}
	return requiredItemsByCategory[models.RoomCategoryGeneric]
}

// ChecklistProgress computes the completion percentage of checklist against
// the required item set. Keys outside the required set are ignored; they are
// still persisted with the session for audit. An empty required set is
// trivially 100%.
func ChecklistProgress(checklist models.ChecklistMap, required []string) int {
	if len(required) == 0 {
		return 100
	}

	done := 0
	for _, item := range required {
		if itemComplete(checklist[item]) {
			done++
		}
	}
	return done * 100 / len(required)
}

// itemComplete treats a plain boolean as its own value and a nested group as
// complete when at least one sub-item is truthy. Checklists arrive from JSON,
// so nested groups show up as map[string]interface{}.
func itemComplete(value interface{}) bool {
	switch v := value.(type) {
	case bool:
		return v
	case map[string]interface{}:
		for _, sub := range v {
			if itemComplete(sub) {
				return true
			}
		}
		return false
	case models.ChecklistMap:
		for _, sub := range v {
			if itemComplete(sub) {
				return true
			}
		}
		return false
	default:
		return false
	}
}
