package widget

import (
	"apim-analytics-backend/internal/model"

	"github.com/rs/zerolog/log"
)

// Reconcile fills every missing (zero) snapshot field with its default and
// keeps the rest untouched.
func Reconcile(s model.QueryParamSnapshot) model.FilterState {
	state := model.FilterState{
		CreatedBy:       s.APICreatedBy,
		SelectedAPI:     s.APISelected,
		SelectedVersion: s.APIVersion,
		Limit:           s.Limit,
	}
	if state.CreatedBy == "" {
		state.CreatedBy = model.CreatedByAll
	}
	if state.SelectedAPI == "" {
		state.SelectedAPI = model.AllSentinel
	}
	if state.SelectedVersion == "" {
		state.SelectedVersion = model.AllSentinel
	}
	if state.Limit == 0 {
		state.Limit = DefaultLimit
	}
	return state
}

// resetState pulls the filters from the global state, applies defaults and
// writes the reconciled values back to both places.
func (c *Controller) resetState() {
	snapshot, err := c.host.GetGlobalState(QueryParamKey)
	if err != nil {
		log.Warn().Err(err).Str("instance", c.id).Msg("Failed to read query params, using defaults")
		snapshot = model.QueryParamSnapshot{}
	}
	c.state = Reconcile(snapshot)
	c.setQueryParam(c.state.CreatedBy, c.state.SelectedAPI, c.state.SelectedVersion, c.state.Limit)
}

// setQueryParam overwrites the whole snapshot; callers pass current local
// values for the fields they are not changing.
func (c *Controller) setQueryParam(createdBy, api, version string, limit int) {
	err := c.host.SetGlobalState(QueryParamKey, model.QueryParamSnapshot{
		APICreatedBy: createdBy,
		APISelected:  api,
		APIVersion:   version,
		Limit:        limit,
	})
	if err != nil {
		log.Error().Err(err).Str("instance", c.id).Msg("Failed to save query params")
	}
}
