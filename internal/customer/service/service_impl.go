package service

import (
	"context"
	"sort"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/orderdesk/internal/clock"
	"github.com/smallbiznis/orderdesk/internal/customer/domain"
	orderdomain "github.com/smallbiznis/orderdesk/internal/order/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

type Params struct {
	fx.In

	Log    *zap.Logger
	GenID  *snowflake.Node
	Clock  clock.Clock
	Repo   domain.Repository
	Orders orderdomain.Repository
}

type Service struct {
	log    *zap.Logger
	genID  *snowflake.Node
	clock  clock.Clock
	repo   domain.Repository
	orders orderdomain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		log:    p.Log.Named("customer.service"),
		genID:  p.GenID,
		clock:  p.Clock,
		repo:   p.Repo,
		orders: p.Orders,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateCustomerRequest) (domain.Customer, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Customer{}, domain.ErrInvalidName
	}

	now := s.clock.Now()
	customer := domain.Customer{
		ID:        s.genID.Generate(),
		Name:      name,
		Phone:     strings.TrimSpace(req.Phone),
		Address:   strings.TrimSpace(req.Address),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Insert(ctx, &customer); err != nil {
		return domain.Customer{}, err
	}

	s.log.Info("customer created", zap.String("customer_id", customer.ID.String()))
	return customer, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateCustomerRequest) (domain.Customer, error) {
	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.Customer{}, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Customer{}, domain.ErrInvalidName
	}

	item, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return domain.Customer{}, err
	}
	if item == nil {
		return domain.Customer{}, domain.ErrNotFound
	}

	item.Name = name
	item.Phone = strings.TrimSpace(req.Phone)
	item.Address = strings.TrimSpace(req.Address)
	item.UpdatedAt = s.clock.Now()
	if err := s.repo.Update(ctx, item); err != nil {
		return domain.Customer{}, err
	}
	return *item, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	customerID, err := s.parseID(id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, customerID); err != nil {
		return err
	}
	s.log.Info("customer deleted", zap.String("customer_id", id))
	return nil
}

// List returns registry entries in Japanese name order. Search matches the
// name case-insensitively or the phone number as a substring.
func (s *Service) List(ctx context.Context, req domain.ListCustomerRequest) ([]domain.Customer, error) {
	items, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	search := strings.ToLower(strings.TrimSpace(req.Search))
	customers := make([]domain.Customer, 0, len(items))
	for _, item := range items {
		if search != "" && !strings.Contains(strings.ToLower(item.Name), search) && !strings.Contains(item.Phone, search) {
			continue
		}
		customers = append(customers, item)
	}

	c := newCollator()
	sort.SliceStable(customers, func(i, j int) bool {
		return c.CompareString(customers[i].Name, customers[j].Name) < 0
	})
	return customers, nil
}

// Directory lists every customer name found on stored orders, one entry per
// name, filled from that name's most recent order.
func (s *Service) Directory(ctx context.Context, req domain.DirectoryRequest) ([]domain.DirectoryEntry, error) {
	sortBy, desc, err := parseSort(req.SortBy, req.Order)
	if err != nil {
		return nil, err
	}

	orders, err := s.newestFirst(ctx)
	if err != nil {
		return nil, err
	}

	search := strings.ToLower(strings.TrimSpace(req.Search))
	seen := make(map[string]struct{}, len(orders))
	entries := make([]domain.DirectoryEntry, 0, len(orders))
	for _, order := range orders {
		if order.CustomerName == "" {
			continue
		}
		if _, ok := seen[order.CustomerName]; ok {
			continue
		}
		seen[order.CustomerName] = struct{}{}
		if search != "" && !strings.Contains(strings.ToLower(order.CustomerName), search) {
			continue
		}
		entries = append(entries, domain.DirectoryEntry{
			Name:        order.CustomerName,
			Phone:       order.PhoneNumber,
			Address:     order.DeliveryAddress,
			LastOrderAt: order.CreatedAt,
		})
	}

	var less func(i, j int) bool
	switch sortBy {
	case domain.SortByDate:
		less = func(i, j int) bool { return entries[i].LastOrderAt.Before(entries[j].LastOrderAt) }
	default:
		c := newCollator()
		less = func(i, j int) bool { return c.CompareString(entries[i].Name, entries[j].Name) < 0 }
	}
	if desc {
		asc := less
		less = func(i, j int) bool { return asc(j, i) }
	}
	sort.SliceStable(entries, less)
	return entries, nil
}

// Prefill returns the contact fields of the most recent order placed under
// name.
func (s *Service) Prefill(ctx context.Context, name string) (domain.Prefill, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Prefill{}, domain.ErrInvalidName
	}

	orders, err := s.newestFirst(ctx)
	if err != nil {
		return domain.Prefill{}, err
	}
	for _, order := range orders {
		if order.CustomerName != name {
			continue
		}
		return domain.Prefill{
			Name:    order.CustomerName,
			Phone:   order.PhoneNumber,
			Address: order.DeliveryAddress,
		}, nil
	}
	return domain.Prefill{}, domain.ErrNotFound
}

func (s *Service) newestFirst(ctx context.Context) ([]orderdomain.Order, error) {
	orders, err := s.orders.List(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(orders, func(i, j int) bool {
		if !orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].CreatedAt.After(orders[j].CreatedAt)
		}
		return orders[i].ID > orders[j].ID
	})
	return orders, nil
}

func (s *Service) parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id <= 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}

func parseSort(sortBy, order string) (string, bool, error) {
	sortBy = strings.ToLower(strings.TrimSpace(sortBy))
	switch sortBy {
	case "":
		sortBy = domain.SortByName
	case domain.SortByName, domain.SortByDate:
	default:
		return "", false, domain.ErrInvalidSort
	}

	switch strings.ToLower(strings.TrimSpace(order)) {
	case "", domain.OrderAsc:
		return sortBy, false, nil
	case domain.OrderDesc:
		return sortBy, true, nil
	default:
		return "", false, domain.ErrInvalidSort
	}
}

// newCollator returns a Japanese collator. Collators are not safe for
// concurrent use, so each call sorts with its own.
func newCollator() *collate.Collator {
	return collate.New(language.Japanese)
}
