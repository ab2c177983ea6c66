package backend

import (
	"context"
	"net/http"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

type AccountsAPI struct {
	c Caller
}

func (a *AccountsAPI) Me(ctx context.Context) (domain.Account, error) {
	return fetchObject[domain.Account](ctx, a.c, "/accounts/me")
}

func (a *AccountsAPI) AdminList(ctx context.Context) ([]domain.Account, error) {
	return fetchList[domain.Account](ctx, a.c, "/admin/accounts")
}

type updateRoleRequest struct {
	Role string `json:"role"`
}

func (a *AccountsAPI) UpdateRole(ctx context.Context, accountID int64, role string) error {
	return a.c.Do(ctx, http.MethodPut, pathID("/admin/accounts", accountID, "/role"), updateRoleRequest{Role: role}, nil)
}
