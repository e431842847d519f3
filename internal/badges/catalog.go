package badges

import "whispernet/internal/models"

// catalog is the static badge table. It is built once at init and shared by
// reference; nothing mutates it after that.
var catalog = map[models.BadgeType]models.BadgeDefinition{
	models.BadgeEmber: {
		Type:    models.BadgeEmber,
		Name:    "Ember",
		Tagline: "Five readers keep this story warm on their shelves",
		Scope:   models.ScopeStory,
	},
	models.BadgeCurrent: {
		Type:    models.BadgeCurrent,
		Name:    "Current",
		Tagline: "The share chain carried this story three hops deep",
		Scope:   models.ScopeStory,
	},
	models.BadgeWorldwalker: {
		Type:    models.BadgeWorldwalker,
		Name:    "Worldwalker",
		Tagline: "Finished by readers in more than one corner of the world",
		Scope:   models.ScopeStory,
	},
	models.BadgeResonant: {
		Type:    models.BadgeResonant,
		Name:    "Resonant",
		Tagline: "Twenty-five readers left a word behind",
		Scope:   models.ScopeStory,
	},
	models.BadgeWanderer: {
		Type:    models.BadgeWanderer,
		Name:    "Wanderer",
		Tagline: "Finished ten stories from other tellers' shelves",
		Scope:   models.ScopeUser,
	},
	models.BadgeLamplighter: {
		Type:    models.BadgeLamplighter,
		Name:    "Lamplighter",
		Tagline: "Your share was the first light for a brand-new reader",
		Scope:   models.ScopeUser,
	},
	models.BadgeChainmaker: {
		Type:    models.BadgeChainmaker,
		Name:    "Chainmaker",
		Tagline: "A share you started traveled three hops or more",
		Scope:   models.ScopeUser,
	},
}

// Catalog returns the definitions of every badge, in a stable order.
func Catalog() []models.BadgeDefinition {
	defs := make([]models.BadgeDefinition, 0, len(catalog))
	for _, t := range []models.BadgeType{
		models.BadgeEmber,
		models.BadgeCurrent,
		models.BadgeWorldwalker,
		models.BadgeResonant,
		models.BadgeWanderer,
		models.BadgeLamplighter,
		models.BadgeChainmaker,
	} {
		defs = append(defs, catalog[t])
	}
	return defs
}

// Definition looks up the static metadata for a badge type.
func Definition(t models.BadgeType) (models.BadgeDefinition, bool) {
	def, ok := catalog[t]
	return def, ok
}
