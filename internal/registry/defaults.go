package registry

import "github.com/benvon/smart-agenda/internal/models"

var defaultItems = []Item{
	{Section: models.SectionHealth, ID: "water", Label: "Drink water", Icon: "droplet"},
	{Section: models.SectionHealth, ID: "vitamins", Label: "Take vitamins", Icon: "pill"},
	{Section: models.SectionHealth, ID: "sleep", Label: "Sleep 8 hours", Icon: "moon"},

	{Section: models.SectionFitness, ID: "walk", Label: "Walk", Icon: "footprints"},
	{Section: models.SectionFitness, ID: "gym", Label: "Gym session", Icon: "dumbbell"},
	{Section: models.SectionFitness, ID: "stretch", Label: "Stretch", Icon: "stretch"},

	{Section: models.SectionMind, ID: "read", Label: "Read", Icon: "book"},
	{Section: models.SectionMind, ID: "meditate", Label: "Meditate", Icon: "lotus"},
	{Section: models.SectionMind, ID: "journal", Label: "Journal", Icon: "pen"},

	{Section: models.SectionHome, ID: "laundry", Label: "Laundry", Icon: "shirt"},
	{Section: models.SectionHome, ID: "clean", Label: "Clean", Icon: "broom"},
	{Section: models.SectionHome, ID: "plants", Label: "Water plants", Icon: "leaf"},

	{Section: models.SectionFinance, ID: "expenses", Label: "Log expenses", Icon: "receipt"},
	{Section: models.SectionFinance, ID: "budget", Label: "Review budget", Icon: "chart"},
	{Section: models.SectionFinance, ID: "bills", Label: "Pay bills", Icon: "bank"},
}

var defaultRegistry = New(defaultItems)

// Default returns the built-in registry
func Default() *Registry {
	return defaultRegistry
}
