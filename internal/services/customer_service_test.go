package services

import (
	"context"
	"testing"
	"time"

	"github.com/paisabook/paisabook-api/internal/ledger"
	"github.com/paisabook/paisabook-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCustomerService(store *memStore, customers map[uint]*models.Customer) *CustomerService {
	uow := &memUOW{store: store}
	txSvc := NewTransactionService(uow, nil, time.Second)
	return NewCustomerService(&mockCustomerRepo{customers: customers}, txSvc)
}

func TestDistributeAndCollectCorporation(t *testing.T) {
	store := newMemStore()
	store.accounts[1] = &models.Account{ID: 1, CurrentBalance: 20000, Active: true}
	store.customers[3] = &models.Customer{ID: 3, Name: "Ravi"}
	svc := newCustomerService(store, map[uint]*models.Customer{3: store.customers[3]})

	// Give 100 rupees, customer owes back 130
	tx, err := svc.DistributeCorporation(context.Background(), 3, 1, 10000, 13000, "", 1)
	require.NoError(t, err)
	require.NotNil(t, tx)

	customer := store.customers[3]
	assert.EqualValues(t, 13000, customer.CorporationReceivable)
	assert.EqualValues(t, 10000, customer.TotalCorporationGiven)
	assert.EqualValues(t, 10000, store.accounts[1].CurrentBalance)

	// Collect half the receivable back
	_, err = svc.CollectCorporation(context.Background(), 3, 1, 6500, "", 1)
	require.NoError(t, err)
	assert.EqualValues(t, 6500, customer.CorporationReceivable)
	assert.EqualValues(t, 6500, customer.TotalCorporationReceived)
	assert.EqualValues(t, 16500, store.accounts[1].CurrentBalance)

	// The remainder plus one paisa is an overpayment
	_, err = svc.CollectCorporation(context.Background(), 3, 1, 6501, "", 1)
	assert.ErrorIs(t, err, ledger.ErrOverpayment)
}

func TestDistributeCorporationRequiresSpread(t *testing.T) {
	store := newMemStore()
	store.accounts[1] = &models.Account{ID: 1, CurrentBalance: 20000, Active: true}
	store.customers[3] = &models.Customer{ID: 3}
	svc := newCustomerService(store, map[uint]*models.Customer{3: store.customers[3]})

	_, err := svc.DistributeCorporation(context.Background(), 3, 1, 10000, 10000, "", 1)
	assert.ErrorIs(t, err, ledger.ErrInvalidAmount)
	assert.Empty(t, store.createdTxs)
}

func TestGetCustomerNotFound(t *testing.T) {
	svc := newCustomerService(newMemStore(), map[uint]*models.Customer{})

	_, err := svc.GetCustomer(context.Background(), 5)
	assert.ErrorIs(t, err, ErrNotFound)
}
