package routing

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/Xausdorf/payout-hub/internal/domain/entity"
	"github.com/Xausdorf/payout-hub/internal/domain/provider"
)

var (
	ErrRoutingResolution = errors.New("routing resolution failed")
	ErrNoActiveChannel   = fmt.Errorf("%w: no active channel", ErrRoutingResolution)
	ErrNoActiveNetwork   = fmt.Errorf("%w: no active network", ErrRoutingResolution)
)

const (
	statusActive = "active"
	manualMarker = "manual"
)

// DefaultVerifyCountries lists the countries whose bank accounts are looked
// up before submission.
var DefaultVerifyCountries = []string{"NG"}

type Cache interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, value string)
	Invalidate(ctx context.Context, key string)
	Purge(ctx context.Context)
}

type NetworkQuery struct {
	Country   string
	Method    entity.Method
	ChannelID string
	BankCode  string
	BankName  string
}

// Route is the provider addressing resolved for one beneficiary.
type Route struct {
	ChannelID   string
	NetworkID   string
	AccountName string
}

type Resolver struct {
	catalog provider.RoutingCatalog
	cache   Cache
	verify  map[string]struct{}
	log     *zap.Logger
}

func NewResolver(catalog provider.RoutingCatalog, cache Cache, log *zap.Logger, verifyCountries []string) *Resolver {
	verify := make(map[string]struct{}, len(verifyCountries))
	for _, c := range verifyCountries {
		verify[strings.ToUpper(strings.TrimSpace(c))] = struct{}{}
	}
	return &Resolver{catalog: catalog, cache: cache, verify: verify, log: log}
}

// Route resolves channel and network for b and, where required, replaces the
// account name with the one the provider has on file.
func (r *Resolver) Route(ctx context.Context, b entity.Beneficiary) (*Route, error) {
	channelID, err := r.ResolveChannel(ctx, b.Country, b.Method)
	if err != nil {
		return nil, err
	}

	networkID, err := r.ResolveNetwork(ctx, NetworkQuery{
		Country:   b.Country,
		Method:    b.Method,
		ChannelID: channelID,
		BankCode:  b.BankCode,
		BankName:  b.BankName,
	})
	if err != nil {
		return nil, err
	}

	name := b.Name
	if b.Method == entity.MethodBankTransfer {
		name, err = r.VerifyAccount(ctx, b.Country, networkID, b.AccountNumber, b.Name)
		if err != nil {
			return nil, err
		}
	}

	return &Route{ChannelID: channelID, NetworkID: networkID, AccountName: name}, nil
}

func (r *Resolver) ResolveChannel(ctx context.Context, country string, method entity.Method) (string, error) {
	channelType := provider.ChannelTypeFor(method)
	key := channelKey(country, method)
	if id, ok := r.cache.Get(ctx, key); ok {
		return id, nil
	}

	channels, err := r.catalog.Channels(ctx, country)
	if err != nil {
		return "", fmt.Errorf("list channels: %w", err)
	}

	for _, ch := range channels {
		if !isActive(ch.Status) || !strings.EqualFold(ch.ChannelType, channelType) {
			continue
		}
		if ch.Country != "" && !strings.EqualFold(ch.Country, country) {
			continue
		}
		r.cache.Set(ctx, key, ch.ID)
		return ch.ID, nil
	}
	return "", fmt.Errorf("%w for %s/%s", ErrNoActiveChannel, country, channelType)
}

func (r *Resolver) ResolveNetwork(ctx context.Context, q NetworkQuery) (string, error) {
	key := networkKey(q)
	if id, ok := r.cache.Get(ctx, key); ok {
		return id, nil
	}

	networks, err := r.catalog.Networks(ctx, q.Country)
	if err != nil {
		return "", fmt.Errorf("list networks: %w", err)
	}

	candidates := make([]provider.Network, 0, len(networks))
	for _, n := range networks {
		if !isActive(n.Status) {
			continue
		}
		if n.Country != "" && !strings.EqualFold(n.Country, q.Country) {
			continue
		}
		if q.ChannelID != "" && len(n.ChannelIDs) > 0 && !slices.Contains(n.ChannelIDs, q.ChannelID) {
			continue
		}
		candidates = append(candidates, n)
	}

	hit, ok := SelectNetwork(candidates, q.BankCode, q.BankName)
	if !ok {
		return "", fmt.Errorf("%w for %s", ErrNoActiveNetwork, q.Country)
	}

	r.cache.Set(ctx, key, hit.ID)
	return hit.ID, nil
}

// VerifyAccount returns the provider's canonical account name for countries
// that require a lookup, otherwise the supplied name.
func (r *Resolver) VerifyAccount(ctx context.Context, country, networkID, accountNumber, name string) (string, error) {
	if _, ok := r.verify[strings.ToUpper(country)]; !ok {
		return name, nil
	}

	details, err := r.catalog.ResolveBankAccount(ctx, provider.AccountLookup{
		Country:       country,
		NetworkID:     networkID,
		AccountNumber: accountNumber,
	})
	if err != nil {
		return "", fmt.Errorf("verify account: %w", err)
	}
	if details == nil || strings.TrimSpace(details.AccountName) == "" {
		return name, nil
	}

	if !strings.EqualFold(details.AccountName, name) {
		r.log.Debug("account name normalized",
			zap.String("country", country),
			zap.String("network_id", networkID),
		)
	}
	return details.AccountName, nil
}

// Forget drops the cached channel and network that produced route for b, so
// the next payout to the same destination lists them again.
func (r *Resolver) Forget(ctx context.Context, b entity.Beneficiary, route *Route) {
	r.cache.Invalidate(ctx, channelKey(b.Country, b.Method))
	if route == nil {
		return
	}
	r.cache.Invalidate(ctx, networkKey(NetworkQuery{
		Country:   b.Country,
		Method:    b.Method,
		ChannelID: route.ChannelID,
		BankCode:  b.BankCode,
		BankName:  b.BankName,
	}))
	r.log.Info("routing cache entries dropped",
		zap.String("country", b.Country),
		zap.String("channel_id", route.ChannelID),
		zap.String("network_id", route.NetworkID),
	)
}

// SelectNetwork picks by exact bank code, then bank name substring, then a
// manual catch-all, then the first entry.
func SelectNetwork(list []provider.Network, bankCode, bankName string) (provider.Network, bool) {
	if len(list) == 0 {
		return provider.Network{}, false
	}

	if bankCode != "" {
		for _, n := range list {
			if n.Code == bankCode {
				return n, true
			}
		}
	}

	if name := strings.ToLower(strings.TrimSpace(bankName)); name != "" {
		for _, n := range list {
			if strings.Contains(strings.ToLower(n.Name), name) {
				return n, true
			}
		}
	}

	for _, n := range list {
		if strings.Contains(strings.ToLower(n.Name), manualMarker) {
			return n, true
		}
	}

	return list[0], true
}

func channelKey(country string, method entity.Method) string {
	return "channel:" + strings.ToUpper(country) + ":" + provider.ChannelTypeFor(method)
}

func networkKey(q NetworkQuery) string {
	return strings.Join([]string{
		"network",
		strings.ToUpper(q.Country),
		provider.ChannelTypeFor(q.Method),
		q.ChannelID,
		q.BankCode,
		strings.ToLower(strings.TrimSpace(q.BankName)),
	}, ":")
}

func isActive(status string) bool {
	return status == "" || strings.EqualFold(status, statusActive)
}
