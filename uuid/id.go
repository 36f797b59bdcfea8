package uuid

import (
	"github.com/google/uuid"
	"github.com/lukasz-zimnoch/dexly/spot"
)

type IDService struct{}

func (ids *IDService) NewID() spot.ID {
	return uuid.New()
}
