package actor

import (
	"testing"
	"time"

	"github.com/venus-addons/goodwe2venus/internal/core/domain"
	"github.com/venus-addons/goodwe2venus/internal/util/actorutil"
	"github.com/venus-addons/goodwe2venus/pkg/goodwe"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestGetDeviceInfoInverterActor(t *testing.T) {

	assert := assert.New(t)

	reader := goodwe.CreateTestInverterReader()

	logger := zap.Must(zap.NewDevelopment())

	as := actorutil.NewActorSystemWithZapLogger(logger)
	context := as.Root

	props := actor.PropsFromProducer(func() actor.Actor { return NewInverterActor(reader, 2*time.Second, logger) })
	pid := context.Spawn(props)

	time.Sleep(1 * time.Second)

	msg := domain.GetDeviceInfoRequest{}
	result, err := context.RequestFuture(pid, msg, 15*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	resp := result.(domain.GetDeviceInfoResponse)

	assert.False(resp.HasResponseError())
	assert.Equal("GW5000-EM", resp.Info.ModelName, "model name")
	assert.Equal("95048EMU000W0000", resp.Info.SerialNumber, "serial number")

	context.Stop(pid)

	as.Shutdown()
}

func TestGetRuntimeDataInverterActor(t *testing.T) {

	assert := assert.New(t)

	reader := goodwe.CreateTestInverterReader()

	logger := zap.Must(zap.NewDevelopment())

	as := actorutil.NewActorSystemWithZapLogger(logger)
	context := as.Root

	props := actor.PropsFromProducer(func() actor.Actor { return NewInverterActor(reader, 2*time.Second, logger) })
	pid := context.Spawn(props)

	time.Sleep(1 * time.Second)

	msg := domain.GetRuntimeDataRequest{}
	result, err := context.RequestFuture(pid, msg, 15*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	resp := result.(domain.GetRuntimeDataResponse)

	assert.False(resp.HasResponseError())
	assert.Equal(1520.0, resp.Data.PVPowerWatt, "pv power")
	assert.Equal(233.1, resp.Data.GridVoltage, "grid voltage")

	context.Stop(pid)

	as.Shutdown()
}

func TestUnreachableDeviceInverterActor(t *testing.T) {

	assert := assert.New(t)

	reader := goodwe.CreateUnreachableInverterReader()

	logger := zap.Must(zap.NewDevelopment())

	as := actorutil.NewActorSystemWithZapLogger(logger)
	context := as.Root

	props := actor.PropsFromProducer(func() actor.Actor { return NewInverterActor(reader, 2*time.Second, logger) })
	pid := context.Spawn(props)

	time.Sleep(1 * time.Second)

	msg := domain.GetRuntimeDataRequest{}
	result, err := context.RequestFuture(pid, msg, 15*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	resp := result.(domain.GetRuntimeDataResponse)

	assert.True(resp.HasResponseError())
	assert.ErrorIs(resp.GetResponseError(), goodwe.ErrDeviceUnreachable)

	context.Stop(pid)

	as.Shutdown()
}

func TestInverterActorHealth(t *testing.T) {

	assert := assert.New(t)

	reader := goodwe.CreateTestInverterReader()

	logger := zap.Must(zap.NewDevelopment())

	as := actorutil.NewActorSystemWithZapLogger(logger)
	context := as.Root

	props := actor.PropsFromProducer(func() actor.Actor { return NewInverterActor(reader, 2*time.Second, logger) })
	pid := context.Spawn(props)

	time.Sleep(1 * time.Second)

	result, err := context.RequestFuture(pid, domain.ActorHealthRequest{}, 15*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	resp := result.(domain.ActorHealthResponse)

	assert.True(resp.Healthy)
	assert.Equal(domain.ACTOR_ID_INVERTER, resp.Id)

	context.Stop(pid)

	as.Shutdown()
}
