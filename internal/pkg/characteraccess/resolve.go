package characteraccess

import (
	"github.com/gabrielonicala/quillia/app/models"
)

// Access is the computed visibility of a user's characters. Resolution is a
// read-time computation only: a free user's accessible character is derived
// on every call and never written back, so the user's explicit choice of
// active character survives until they manually switch.
type Access struct {
	Accessible   []models.Character
	Locked       []models.Character
	TotalAllowed int
	TotalOwned   int
}

// CanAccess reports whether the character is currently accessible.
func (a *Access) CanAccess(characterID uint) bool {
	for _, c := range a.Accessible {
		if c.ID == characterID {
			return true
		}
	}
	return false
}

// ResolveAccess computes character visibility from a user snapshot and the
// owned characters ordered oldest first. Premium users see everything; free
// users see exactly one: their chosen active character if it still exists,
// otherwise the oldest-created one.
func ResolveAccess(user *models.User, characters []models.Character, premium bool) *Access {
	access := &Access{TotalOwned: len(characters)}

	if premium {
		access.TotalAllowed = len(characters)
		access.Accessible = characters
		access.Locked = []models.Character{}
		return access
	}

	access.TotalAllowed = 1
	if len(characters) == 0 {
		access.Accessible = []models.Character{}
		access.Locked = []models.Character{}
		return access
	}

	chosen := characters[0]
	if user.ActiveCharacterID != nil {
		for _, c := range characters {
			if c.ID == *user.ActiveCharacterID {
				chosen = c
				break
			}
		}
	}

	access.Accessible = []models.Character{chosen}
	access.Locked = make([]models.Character, 0, len(characters)-1)
	for _, c := range characters {
		if c.ID != chosen.ID {
			access.Locked = append(access.Locked, c)
		}
	}
	return access
}
