package bots

import "github.com/botpanel/go-botpanel/internal/utils"

// Config is one trading-bot parameter set. At most one config is active
// at a time; the backend enforces the exclusivity when a config is
// toggled on, and the cache only mirrors the post-toggle state after the
// invalidation-triggered refetch.
type Config struct {
	ID           int     `json:"id"`
	SelectedCoin string  `json:"selected_coin"`
	Percentage   float64 `json:"percentage"`
	StopLoss     float64 `json:"stop_loss"`
	TakeProfit   float64 `json:"take_profit"`
	ProfitFactor float64 `json:"profit_factor"`
	IsActive     bool    `json:"is_active"`
	Created      string  `json:"created_at"`
	Updated      string  `json:"updated_at"`
}

// CreateConfigRequest is the payload for creating a bot config. New
// configs always start inactive.
type CreateConfigRequest struct {
	SelectedCoin string  `json:"selected_coin"`
	Percentage   float64 `json:"percentage"`
	StopLoss     float64 `json:"stop_loss"`
	TakeProfit   float64 `json:"take_profit"`
	ProfitFactor float64 `json:"profit_factor"`
}

// UpdateConfigRequest patches a bot config. Nil fields are left
// unchanged by the backend.
type UpdateConfigRequest struct {
	ID           int      `json:"-"`
	SelectedCoin *string  `json:"selected_coin,omitempty"`
	Percentage   *float64 `json:"percentage,omitempty"`
	StopLoss     *float64 `json:"stop_loss,omitempty"`
	TakeProfit   *float64 `json:"take_profit,omitempty"`
	ProfitFactor *float64 `json:"profit_factor,omitempty"`
	IsActive     *bool    `json:"is_active,omitempty"`
}

// UpdateConfig starts a patch for the config with the given id.
func UpdateConfig(id int) UpdateConfigRequest {
	return UpdateConfigRequest{ID: id}
}

// WithSelectedCoin sets the coin pair to patch.
func (r UpdateConfigRequest) WithSelectedCoin(coin string) UpdateConfigRequest {
	r.SelectedCoin = utils.Ptr(coin)
	return r
}

// WithPercentage sets the allocation percentage to patch.
func (r UpdateConfigRequest) WithPercentage(pct float64) UpdateConfigRequest {
	r.Percentage = utils.Ptr(pct)
	return r
}

// WithStopLoss sets the stop-loss threshold to patch.
func (r UpdateConfigRequest) WithStopLoss(v float64) UpdateConfigRequest {
	r.StopLoss = utils.Ptr(v)
	return r
}

// WithTakeProfit sets the take-profit threshold to patch.
func (r UpdateConfigRequest) WithTakeProfit(v float64) UpdateConfigRequest {
	r.TakeProfit = utils.Ptr(v)
	return r
}

// WithProfitFactor sets the profit factor to patch.
func (r UpdateConfigRequest) WithProfitFactor(v float64) UpdateConfigRequest {
	r.ProfitFactor = utils.Ptr(v)
	return r
}

// WithActive sets the active flag to patch.
func (r UpdateConfigRequest) WithActive(active bool) UpdateConfigRequest {
	r.IsActive = utils.Ptr(active)
	return r
}

// ToggleResponse is the backend's acknowledgement of a start/stop.
type ToggleResponse struct {
	Success  bool `json:"success"`
	IsActive bool `json:"isActive"`
}

// DeleteConfigResponse is the backend's acknowledgement of a deletion.
type DeleteConfigResponse struct {
	Success bool `json:"success"`
	ID      int  `json:"id"`
}
