package actor

import (
	"fmt"
	"testing"
	"time"

	adactor "github.com/venus-addons/goodwe2venus/internal/adapter/actor"
	dbusadapter "github.com/venus-addons/goodwe2venus/internal/adapter/dbus"
	"github.com/venus-addons/goodwe2venus/internal/core/domain"
	"github.com/venus-addons/goodwe2venus/internal/util"
	"github.com/venus-addons/goodwe2venus/pkg/goodwe"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestMasterActor(t *testing.T) {

	as := actor.NewActorSystem()
	context := as.Root

	cfg := util.LoadTestConfig()
	logCfg := zap.NewDevelopmentConfig()
	logCfg.Level = zap.NewAtomicLevelAt(cfg.LogLevel)
	logger := zap.Must(logCfg.Build())

	publisher := &dbusadapter.TestMeasurementPublisher{}
	publisher.Register()

	props := actor.PropsFromProducer(func() actor.Actor {
		return NewMasterOfPuppetsActor(cfg, func() *adactor.InverterActor {
			return adactor.NewInverterActor(goodwe.CreateTestInverterReader(), 2*time.Second, logger)
		}, func() *adactor.DBusActor {
			return adactor.NewDBusActor(publisher, logger)
		}, nil, logger)
	})
	pid, err := context.SpawnNamed(props, "master")
	if err != nil {
		t.Error(err)
		return
	}

	time.Sleep(2 * time.Second)

	res, err := context.RequestFuture(pid, domain.ActorHealthRequest{}, 10*time.Second).Result()
	if err != nil {
		t.Error(err)
	}
	healthResp, ok := res.(domain.ActorHealthResponse)
	assert.True(t, ok)
	fmt.Printf("Health response: %+v\n", healthResp)
	assert.NotNil(t, healthResp)

	assert.True(t, healthResp.Healthy, "healthy is true")

	context.Stop(pid)

	as.Shutdown()
}

func TestMasterActorHealthyWithDeadDevice(t *testing.T) {

	as := actor.NewActorSystem()
	context := as.Root

	cfg := util.LoadTestConfig()
	logCfg := zap.NewDevelopmentConfig()
	logCfg.Level = zap.NewAtomicLevelAt(cfg.LogLevel)
	logger := zap.Must(logCfg.Build())

	publisher := &dbusadapter.TestMeasurementPublisher{}
	publisher.Register()

	props := actor.PropsFromProducer(func() actor.Actor {
		return NewMasterOfPuppetsActor(cfg, func() *adactor.InverterActor {
			return adactor.NewInverterActor(goodwe.CreateUnreachableInverterReader(), 2*time.Second, logger)
		}, func() *adactor.DBusActor {
			return adactor.NewDBusActor(publisher, logger)
		}, nil, logger)
	})
	pid, err := context.SpawnNamed(props, "master")
	if err != nil {
		t.Error(err)
		return
	}

	time.Sleep(3 * time.Second)

	// an unreachable device degrades cycles, not the service
	res, err := context.RequestFuture(pid, domain.ActorHealthRequest{}, 10*time.Second).Result()
	if err != nil {
		t.Error(err)
	}
	healthResp, ok := res.(domain.ActorHealthResponse)
	assert.True(t, ok)
	assert.True(t, healthResp.Healthy, "healthy is true")

	context.Stop(pid)

	as.Shutdown()
}
