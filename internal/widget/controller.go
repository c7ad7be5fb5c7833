package widget

import (
	"apim-analytics-backend/internal/dto"
	"apim-analytics-backend/internal/locale"
	"apim-analytics-backend/internal/model"
	"context"
	"slices"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type Phase string

const (
	PhaseIdle        Phase = "idle"
	PhaseEnumerating Phase = "enumerating_apis"
	PhaseAggregating Phase = "aggregating"
)

// Controller is the Filter-State Controller of one widget instance. It is
// not safe for concurrent use: every method must run on the instance's event
// loop, which is what dispatch posts onto.
type Controller struct {
	host       Host
	id         string
	widgetName string
	dispatch   func(func())
	onChange   func()

	state          model.FilterState
	timeWindow     model.TimeWindow
	providerConfig *model.ProviderConfig
	faulty         bool
	messages       map[string]string
	apiList        []string
	versionList    []string
	legendData     []model.LegendEntry
	platformData   []model.PlatformMetric
	inProgress     bool
	phase          Phase

	// token identifies the live data-channel subscription; deliveries
	// carrying any other token are stale.
	token string
}

func NewController(host Host, id, widgetName string, dispatch func(func())) *Controller {
	return &Controller{
		host:       host,
		id:         id,
		widgetName: widgetName,
		dispatch:   dispatch,
		state: model.FilterState{
			CreatedBy:       model.CreatedByAll,
			SelectedAPI:     model.AllSentinel,
			SelectedVersion: model.AllSentinel,
		},
		apiList:     []string{},
		versionList: []string{},
		inProgress:  true,
		phase:       PhaseIdle,
	}
}

// OnChange registers fn to run after every state mutation.
func (c *Controller) OnChange(fn func()) {
	c.onChange = fn
}

func (c *Controller) changed() {
	if c.onChange != nil {
		c.onChange()
	}
}

// Mount loads the locale bundle and the widget configuration, then listens
// for date-time range notifications. A configuration failure leaves the
// widget faulty for good.
func (c *Controller) Mount(ctx context.Context, language string) {
	c.messages = c.loadMessages(language)

	cfg, err := c.host.GetWidgetConfiguration(ctx, c.widgetName)
	if err != nil {
		log.Error().Err(err).Str("widget", c.widgetName).Str("instance", c.id).Msg("Failed to load widget configuration")
		c.faulty = true
		c.inProgress = false
		c.changed()
		return
	}
	providerConfig := cfg.Configs.ProviderConfig.Clone()
	c.providerConfig = &providerConfig

	c.host.Subscribe(c.id, func(tw model.TimeWindow) {
		c.dispatch(func() { c.HandlePublisherParameters(tw) })
	})
	c.changed()
}

func (c *Controller) loadMessages(language string) map[string]string {
	lang := locale.Base(language)
	if lang == "" {
		lang = locale.DefaultLanguage
	}
	messages, err := c.host.LoadLocale(lang)
	if err == nil {
		return messages
	}
	if lang != locale.DefaultLanguage {
		messages, err = c.host.LoadLocale(locale.DefaultLanguage)
		if err == nil {
			return messages
		}
	}
	log.Debug().Err(err).Str("language", language).Msg("No locale messages available")
	return nil
}

// Unmount stops the data channel and the time-range subscription.
func (c *Controller) Unmount() {
	c.unsubscribe()
	c.host.Unsubscribe(c.id)
	c.phase = PhaseIdle
}

// HandlePublisherParameters stores the new window and starts over with
// API enumeration.
func (c *Controller) HandlePublisherParameters(tw model.TimeWindow) {
	c.timeWindow = tw
	c.inProgress = true
	c.changed()
	c.assembleApiListQuery()
}

func (c *Controller) HandleCreatedByChange(createdBy string) {
	c.setQueryParam(createdBy, model.AllSentinel, model.AllSentinel, c.state.Limit)
	c.inProgress = true
	c.changed()
	c.unsubscribe()
	c.assembleApiListQuery()
}

func (c *Controller) HandleAPIChange(api string) {
	c.setQueryParam(c.state.CreatedBy, api, model.AllSentinel, c.state.Limit)
	c.inProgress = true
	c.changed()
	c.unsubscribe()
	c.assembleApiListQuery()
}

func (c *Controller) HandleVersionChange(version string) {
	c.setQueryParam(c.state.CreatedBy, c.state.SelectedAPI, version, c.state.Limit)
	c.inProgress = true
	c.changed()
	c.unsubscribe()
	c.assembleMainQuery()
}

// HandleLimitChange accepts raw text input. Empty input leaves the limit
// pending and issues no query.
func (c *Controller) HandleLimitChange(raw string) {
	text, limit := ParseLimit(raw)
	c.setQueryParam(c.state.CreatedBy, c.state.SelectedAPI, c.state.SelectedVersion, limit)
	if text == "" {
		c.state.Limit = 0
		c.changed()
		return
	}
	c.state.Limit = limit
	c.inProgress = true
	c.changed()
	c.unsubscribe()
	c.assembleMainQuery()
}

// View returns a copy of the presentation state.
func (c *Controller) View() dto.WidgetState {
	return dto.WidgetState{
		InstanceID:   c.id,
		WidgetID:     c.widgetName,
		Faulty:       c.faulty,
		Messages:     c.messages,
		Limit:        c.state.Limit,
		APICreatedBy: c.state.CreatedBy,
		APISelected:  c.state.SelectedAPI,
		APIVersion:   c.state.SelectedVersion,
		APIList:      slices.Clone(c.apiList),
		VersionList:  slices.Clone(c.versionList),
		LegendData:   slices.Clone(c.legendData),
		PlatformData: slices.Clone(c.platformData),
		InProgress:   c.inProgress,
		Phase:        string(c.phase),
	}
}

// subscribe replaces the instance's subscription with a new one whose
// deliveries are routed through the event loop to handle.
func (c *Controller) subscribe(cfg model.ProviderConfig, handle func(model.DataMessage)) {
	c.unsubscribe()
	token := uuid.NewString()
	c.token = token
	callback := func(msg model.DataMessage) {
		c.dispatch(func() {
			if c.token != token {
				log.Debug().Str("instance", c.id).Msg("Dropping stale data delivery")
				return
			}
			handle(msg)
		})
	}
	if err := c.host.GetWidgetChannelManager().SubscribeWidget(c.id, c.widgetName, callback, cfg); err != nil {
		log.Error().Err(err).Str("instance", c.id).Str("query", cfg.Config.QueryData.QueryName).Msg("Failed to subscribe to data channel")
		c.token = ""
		handle(model.DataMessage{Err: err})
	}
}

func (c *Controller) unsubscribe() {
	c.host.GetWidgetChannelManager().UnsubscribeWidget(c.id)
	c.token = ""
}
