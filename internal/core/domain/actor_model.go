package domain

import "github.com/venus-addons/goodwe2venus/pkg/goodwe"

const (
	ACTOR_ID_MASTER   = "master"
	ACTOR_ID_INVERTER = "inverter"
	ACTOR_ID_DBUS     = "dbus"
	ACTOR_ID_MONITOR  = "monitor"
	ACTOR_ID_MQTT     = "mqtt"
)

type GetDeviceInfoRequest struct {
	ActorRequestMixIn
}

type GetDeviceInfoResponse struct {
	ActorResponseMixIn
	Info *goodwe.DeviceInfo
}

type GetRuntimeDataRequest struct {
	ActorRequestMixIn
}

type GetRuntimeDataResponse struct {
	ActorResponseMixIn
	Data *goodwe.RuntimeData
}

type PublishMeasurementsRequest struct {
	ActorRequestMixIn
	Measurements NormalizedMeasurements
}

type PublishMeasurementsResponse struct {
	ActorResponseMixIn
}

type PublishSensorUpdateRequest struct {
	ActorRequestMixIn
	Event  SensorUpdateEvent
	Retain bool
}

type PublishSensorUpdateResponse struct {
	ActorResponseMixIn
}

type ActorHealthRequest struct {
	ActorRequestMixIn
}

type ActorHealthResponse struct {
	ActorResponseMixIn
	Id      string
	Healthy bool
	State   string
}
