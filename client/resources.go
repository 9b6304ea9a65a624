package client

import (
	"context"
	"strconv"
)

// VehicleMod is a community vehicle modification listed in the RaceGrid
// catalogue. VehicleClass and Surface are numeric API codes; the lookup
// package translates them to labels.
type VehicleMod struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	Author       string `json:"author"`
	Version      string `json:"version"`
	VehicleClass int    `json:"vehicle_class"`
	Downloads    int    `json:"downloads"`
	UpdatedAt    string `json:"updated_at"`
}

// Host is a game server currently registered with the hosting service.
type Host struct {
	ID         int    `json:"id"`
	Name       string `json:"name"`
	Track      string `json:"track"`
	Surface    int    `json:"surface"`
	Status     int    `json:"status"`
	Mode       int    `json:"mode"`
	Players    int    `json:"players"`
	MaxPlayers int    `json:"max_players"`
	Passworded bool   `json:"passworded"`
	Country    string `json:"country"`
}

// UserInfo describes the account behind the current token. Only meaningful
// for the authorization code flows.
type UserInfo struct {
	ID          int    `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email,omitempty"`
	CreatedAt   string `json:"created_at"`
}

// VehicleMods lists all vehicle mods.
func (c *Client) VehicleMods(ctx context.Context, options ...CallOption) ([]VehicleMod, error) {
	var mods []VehicleMod
	if err := c.get(ctx, "vehiclemod", &mods, options...); err != nil {
		return nil, err
	}
	return mods, nil
}

// VehicleMod fetches a single vehicle mod by ID.
func (c *Client) VehicleMod(ctx context.Context, id int, options ...CallOption) (*VehicleMod, error) {
	var mod VehicleMod
	if err := c.get(ctx, "vehiclemod/"+strconv.Itoa(id), &mod, options...); err != nil {
		return nil, err
	}
	return &mod, nil
}

// Hosts lists all registered hosts.
func (c *Client) Hosts(ctx context.Context, options ...CallOption) ([]Host, error) {
	var hosts []Host
	if err := c.get(ctx, "host", &hosts, options...); err != nil {
		return nil, err
	}
	return hosts, nil
}

// Host fetches a single host by ID.
func (c *Client) Host(ctx context.Context, id int, options ...CallOption) (*Host, error) {
	var host Host
	if err := c.get(ctx, "host/"+strconv.Itoa(id), &host, options...); err != nil {
		return nil, err
	}
	return &host, nil
}

// UserInfo fetches the account behind the current token.
func (c *Client) UserInfo(ctx context.Context, options ...CallOption) (*UserInfo, error) {
	var info UserInfo
	if err := c.get(ctx, "userinfo", &info, options...); err != nil {
		return nil, err
	}
	return &info, nil
}
