package stampauth

import (
	"time"

	"github.com/stampauth/stampauth/internal"
)

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

type uuidIDSource struct{}

func (uuidIDSource) NewTokenID() string { return internal.NewTokenID() }

func (uuidIDSource) NewSecurityStamp() string { return internal.NewSecurityStamp() }

type cryptoRandomSource struct{}

func (cryptoRandomSource) Int(max int64) (int64, error) { return internal.RandInt(max) }
