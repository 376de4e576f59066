package actor

import (
	"fmt"
	"time"

	"github.com/venus-addons/goodwe2venus/internal/config"
	"github.com/venus-addons/goodwe2venus/internal/core/domain"
	"github.com/venus-addons/goodwe2venus/internal/core/events"
	"github.com/venus-addons/goodwe2venus/internal/core/service"
	. "github.com/venus-addons/goodwe2venus/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/asynkron/protoactor-go/scheduler"
	"go.uber.org/zap"
)

// MonitorActor drives the poll cycle: read runtime data, normalize, publish
// to the bus, then arm the next tick. The interval is measured end to start,
// a slow device stretches the cycle instead of piling up requests.
type MonitorActor struct {
	behavior  actor.Behavior
	stash     *Stash
	scheduler *scheduler.TimerScheduler

	inverterActor *actor.PID
	dbusActor     *actor.PID
	config        *config.Config
	eventStream   *eventstream.EventStream

	okCycles     uint
	failedCycles uint
	lastPower    float64
	pendingCycle *domain.NormalizedMeasurements

	logger *zap.Logger
}

type monitorTick struct {
}

type signOfLifeTick struct {
}

func NewMonitorActor(config *config.Config, inverterActor *actor.PID, dbusActor *actor.PID, eventStream *eventstream.EventStream, logger *zap.Logger) *MonitorActor {
	act := &MonitorActor{
		config:        config,
		inverterActor: inverterActor,
		dbusActor:     dbusActor,
		behavior:      actor.NewBehavior(),
		stash:         &Stash{},
		logger:        ActorLogger(domain.ACTOR_ID_MONITOR, logger),
		eventStream:   eventStream,
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *MonitorActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *MonitorActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("monitor@starting started")

		state.scheduler = scheduler.NewTimerScheduler(ctx)
		state.scheduler.RequestOnce(state.pollInterval(), ctx.Self(), monitorTick{})

		signOfLife := time.Duration(state.config.SignOfLifeLog) * time.Minute
		state.scheduler.RequestRepeatedly(signOfLife, signOfLife, ctx.Self(), signOfLifeTick{})

		PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.inverterActor, domain.GetDeviceInfoRequest{}, state.deviceTimeout()), func(err error) any {
			return domain.GetDeviceInfoResponse{
				ActorResponseMixIn: domain.ActorResponseMixIn{
					ResponseError: err,
				},
			}
		})
		state.behavior.Become(state.WaitingInfoReceive)
	case *actor.Restarting:
	default:
		state.logger.Debug("monitor@starting: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MonitorActor) WaitingInfoReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.GetDeviceInfoResponse:
		if msg.HasResponseError() {
			// device may be offline at boot, the poll loop keeps trying
			state.logger.Warn("monitor@waitingInfo device info unavailable", zap.Error(msg.GetResponseError()))
		} else {
			state.logger.Info("monitor@waitingInfo device identified",
				zap.String("model", msg.Info.ModelName),
				zap.String("serial", msg.Info.SerialNumber),
				zap.String("firmware", msg.Info.FirmwareVersion))
		}
		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	default:
		state.logger.Debug("monitor@waitingInfo: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MonitorActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.logger.Debug("monitor@default: ActorHealthRequest")
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_MONITOR,
			Healthy: true,
			State:   "idle",
		})
	case monitorTick:
		state.logger.Debug("monitor@default tick")
		PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.inverterActor, domain.GetRuntimeDataRequest{}, state.deviceTimeout()), func(err error) any {
			return domain.GetRuntimeDataResponse{
				ActorResponseMixIn: domain.ActorResponseMixIn{
					ResponseError: err,
				},
			}
		})
		state.behavior.BecomeStacked(state.WaitingCycleReceive)
	case signOfLifeTick:
		state.logger.Info("--- sign of life",
			zap.Uint("ok_cycles", state.okCycles),
			zap.Uint("failed_cycles", state.failedCycles),
			zap.Float64("last_power", state.lastPower))
		state.okCycles = 0
		state.failedCycles = 0
	default:
		state.logger.Debug("monitor@default: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MonitorActor) WaitingCycleReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.GetRuntimeDataResponse:
		if msg.HasResponseError() {
			state.logger.Warn("monitor@cycle runtime data error", zap.Error(msg.GetResponseError()))
			state.endCycle(ctx, false)
			return
		}
		state.logger.Debug("monitor@cycle GetRuntimeDataResponse")

		normalized, err := service.NormalizeMeasurements(msg.Data, state.config)
		if err != nil {
			state.logger.Error("monitor@cycle normalize error", zap.Error(err))
			state.endCycle(ctx, false)
			return
		}
		state.lastPower = normalized.Inverter[domain.PathAcPower].Value

		PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.dbusActor, domain.PublishMeasurementsRequest{
			Measurements: normalized,
		}, state.deviceTimeout()), func(err error) any {
			return domain.PublishMeasurementsResponse{
				ActorResponseMixIn: domain.ActorResponseMixIn{
					ResponseError: err,
				},
			}
		})
		state.pendingCycle = &normalized
	case domain.PublishMeasurementsResponse:
		if msg.HasResponseError() {
			state.logger.Warn("monitor@cycle publish error", zap.Error(msg.GetResponseError()))
			state.endCycle(ctx, false)
			return
		}
		state.logger.Debug("monitor@cycle published")

		// the mirror only sees values the bus accepted
		if state.eventStream != nil && state.pendingCycle != nil {
			for _, ev := range events.MeasurementsToUpdateEvents(*state.pendingCycle) {
				state.eventStream.Publish(ev)
			}
		}
		state.endCycle(ctx, true)
	default:
		state.logger.Debug("monitor@cycle: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

// endCycle counts the result and arms the next tick. Scheduling here rather
// than at tick time keeps the interval end-to-start.
func (state *MonitorActor) endCycle(ctx actor.Context, ok bool) {
	state.pendingCycle = nil
	if ok {
		state.okCycles++
	} else {
		state.failedCycles++
	}
	state.scheduler.RequestOnce(state.pollInterval(), ctx.Self(), monitorTick{})
	state.behavior.UnbecomeStacked()
	state.stash.UnstashAll(ctx)
}

func (state *MonitorActor) pollInterval() time.Duration {
	return time.Duration(state.config.OnPremise.PollIntervalMillis) * time.Millisecond
}

// deviceTimeout leaves the device adapter room to time out on its own
// before the request future gives up.
func (state *MonitorActor) deviceTimeout() time.Duration {
	return time.Duration(state.config.OnPremise.TimeoutMillis)*time.Millisecond + 500*time.Millisecond
}
