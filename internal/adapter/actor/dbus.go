package actor

import (
	"fmt"

	"github.com/venus-addons/goodwe2venus/internal/core/domain"
	"github.com/venus-addons/goodwe2venus/internal/core/port"
	"github.com/venus-addons/goodwe2venus/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/reugn/go-quartz/logger"
	"go.uber.org/zap"
)

// DBusActor serializes publish cycles onto an already registered bus
// publisher. Registration happens before the actor system starts, so this
// actor never re-registers; it only writes values and closes on stop.
type DBusActor struct {
	behavior  actor.Behavior
	stash     *actorutil.Stash
	publisher port.MeasurementPublisher
	logger    *zap.Logger
}

func NewDBusActor(publisher port.MeasurementPublisher, logger *zap.Logger) *DBusActor {
	act := &DBusActor{
		publisher: publisher,
		behavior:  actor.NewBehavior(),
		stash:     &actorutil.Stash{},
		logger:    actorutil.ActorLogger(domain.ACTOR_ID_DBUS, logger),
	}
	act.behavior.Become(act.DefaultReceive)
	return act
}

func (state *DBusActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *DBusActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.logger.Debug("dbus@default: ActorHealthRequest")
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_DBUS,
			Healthy: true,
			State:   "idle",
		})
	case domain.PublishMeasurementsRequest:
		state.logger.Debug("dbus@default: PublishMeasurementsRequest")
		sender := actorutil.ForRequest(msg).ReplyTo(ctx)

		measurements := msg.Measurements
		actorutil.MapBackgroundTask(actorutil.NewBackgroundTask(ctx, func() (*domain.PublishMeasurementsResponse, error) {
			return state.publish(measurements)
		}),
			mapTaskResult[domain.PublishMeasurementsResponse](sender)).Recover(func(err error) backgroundTaskResult {
			return backgroundTaskResult{
				message: domain.PublishMeasurementsResponse{
					ActorResponseMixIn: domain.ActorResponseMixIn{
						ResponseError: err,
					},
				},
				replyTo: sender,
			}
		}).PipeTo(ctx.Self())
		state.behavior.BecomeStacked(state.WaitingBus)
	case *actor.Stopping:
		state.publisher.Close()
	default:
		state.logger.Debug("dbus@default default recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *DBusActor) WaitingBus(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case backgroundTaskResult:
		state.logger.Debug("dbus@waitingBus backgroundTaskResult", zap.String("type", fmt.Sprintf("%T", msg.message)))
		ctx.Send(msg.replyTo, msg.message)
		state.behavior.UnbecomeStacked()
		state.stash.UnstashAll(ctx)
	case *actor.Stopping:
		state.publisher.Close()
	default:
		state.logger.Debug("dbus@waitingBus stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (a *DBusActor) publish(measurements domain.NormalizedMeasurements) (*domain.PublishMeasurementsResponse, error) {
	if err := a.publisher.Publish(measurements); err != nil {
		logger.Error(err)
		return nil, err
	}
	return &domain.PublishMeasurementsResponse{}, nil
}
