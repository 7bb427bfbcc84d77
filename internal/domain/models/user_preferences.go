package models

import (
	"encoding/json"
	"time"
)

// JSONMap is a type alias for JSONB columns
type JSONMap map[string]interface{}

// UserPreferences represents user-specific settings. All preferences
// live in a single JSONB column with namespaced structure
// ({models, ui, system_instructions}) so new namespaces never need a
// migration.
type UserPreferences struct {
	UserID      string    `json:"user_id" db:"user_id"`
	Preferences JSONMap   `json:"preferences" db:"preferences"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// ModelsPreferences represents the models namespace in preferences
type ModelsPreferences struct {
	Favorites []string `json:"favorites"`
	Default   *string  `json:"default"` // Pointer to allow null
}

// UIPreferences represents the ui namespace in preferences
type UIPreferences struct {
	Theme       string `json:"theme"`        // "light", "dark", "auto"
	CompactMode *bool  `json:"compact_mode"` // Pointer to allow null
}

// GetModels extracts the models namespace from preferences with type safety
func (up *UserPreferences) GetModels() (*ModelsPreferences, error) {
	if up.Preferences == nil {
		return &ModelsPreferences{Favorites: []string{}}, nil
	}

	modelsData, ok := up.Preferences["models"]
	if !ok {
		return &ModelsPreferences{Favorites: []string{}}, nil
	}

	// Re-marshal to ensure type safety
	data, err := json.Marshal(modelsData)
	if err != nil {
		return nil, err
	}

	var models ModelsPreferences
	if err := json.Unmarshal(data, &models); err != nil {
		return nil, err
	}

	return &models, nil
}

// SetModels sets the models namespace in preferences
func (up *UserPreferences) SetModels(models *ModelsPreferences) error {
	if up.Preferences == nil {
		up.Preferences = JSONMap{}
	}

	data, err := json.Marshal(models)
	if err != nil {
		return err
	}

	var modelsMap map[string]interface{}
	if err := json.Unmarshal(data, &modelsMap); err != nil {
		return err
	}

	up.Preferences["models"] = modelsMap
	return nil
}

// GetUI extracts the ui namespace from preferences
func (up *UserPreferences) GetUI() (*UIPreferences, error) {
	if up.Preferences == nil {
		return &UIPreferences{Theme: "light"}, nil
	}

	uiData, ok := up.Preferences["ui"]
	if !ok {
		return &UIPreferences{Theme: "light"}, nil
	}

	data, err := json.Marshal(uiData)
	if err != nil {
		return nil, err
	}

	var ui UIPreferences
	if err := json.Unmarshal(data, &ui); err != nil {
		return nil, err
	}

	return &ui, nil
}

// SetUI sets the ui namespace in preferences
func (up *UserPreferences) SetUI(ui *UIPreferences) error {
	if up.Preferences == nil {
		up.Preferences = JSONMap{}
	}

	data, err := json.Marshal(ui)
	if err != nil {
		return err
	}

	var uiMap map[string]interface{}
	if err := json.Unmarshal(data, &uiMap); err != nil {
		return err
	}

	up.Preferences["ui"] = uiMap
	return nil
}

// GetSystemInstructions extracts system_instructions from preferences
func (up *UserPreferences) GetSystemInstructions() *string {
	if up.Preferences == nil {
		return nil
	}

	instructions, ok := up.Preferences["system_instructions"]
	if !ok || instructions == nil {
		return nil
	}

	str, ok := instructions.(string)
	if !ok {
		return nil
	}

	return &str
}

// SetSystemInstructions sets system_instructions in preferences
func (up *UserPreferences) SetSystemInstructions(instructions *string) {
	if up.Preferences == nil {
		up.Preferences = JSONMap{}
	}

	if instructions == nil {
		up.Preferences["system_instructions"] = nil
	} else {
		up.Preferences["system_instructions"] = *instructions
	}
}

// OptionalSystemInstructions tracks tri-state semantics for
// system_instructions updates (RFC 7396 PATCH). Transport-agnostic (no
// JSON tags); the handler maps from httputil.OptionalString.
//   - Present=false: field absent from request (don't change)
//   - Present=true, Value=nil: field is null (clear)
//   - Present=true, Value=&"text": field has value
type OptionalSystemInstructions struct {
	Present bool
	Value   *string
}

// UpdatePreferencesRequest represents a partial preferences update.
// Only provided namespaces are touched.
type UpdatePreferencesRequest struct {
	Models             *ModelsPreferences `json:"models"`
	UI                 *UIPreferences     `json:"ui"`
	SystemInstructions OptionalSystemInstructions
}
