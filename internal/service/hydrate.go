package service

import (
	"context"

	"projector-tracker/internal/domain"
	"projector-tracker/internal/repository"
)

// Resolución de referencias por id después de la consulta principal.

func userSummaries(ctx context.Context, users repository.UserRepository, ids []string) (map[string]domain.UserSummary, error) {
	out := make(map[string]domain.UserSummary, len(ids))
	list, err := users.GetByIDs(ctx, uniqueIDs(ids))
	if err != nil {
		return nil, err
	}
	for _, u := range list {
		out[u.ID] = u.Summary()
	}
	return out, nil
}

func equipmentSummaries(ctx context.Context, equipment repository.EquipmentRepository, ids []string) (map[string]domain.EquipmentSummary, error) {
	out := make(map[string]domain.EquipmentSummary, len(ids))
	list, err := equipment.GetByIDs(ctx, uniqueIDs(ids))
	if err != nil {
		return nil, err
	}
	for _, e := range list {
		out[e.ID] = e.Summary()
	}
	return out, nil
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func lookupUser(m map[string]domain.UserSummary, id *string) *domain.UserSummary {
	if id == nil {
		return nil
	}
	if u, ok := m[*id]; ok {
		return &u
	}
	return nil
}

func lookupUserID(m map[string]domain.UserSummary, id string) *domain.UserSummary {
	return lookupUser(m, &id)
}

func lookupEquipment(m map[string]domain.EquipmentSummary, id string) *domain.EquipmentSummary {
	if e, ok := m[id]; ok {
		return &e
	}
	return nil
}
