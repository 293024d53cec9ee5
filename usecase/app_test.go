package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStoreHealthyWithoutDatabase(t *testing.T) {
	service := serviceApp{}
	assert.False(t, service.StoreHealthy(context.Background()))
}
