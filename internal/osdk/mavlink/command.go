// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package mavlink

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/bluenviron/gomavlib/v3/pkg/dialects/common"

	"github.com/relabs-tech/osdk_bridge/internal/osdk"
)

// cameraComponent is MAV_COMP_ID_CAMERA; payload n is cameraComponent+n.
const cameraComponent = 100

var (
	// ErrRejected wraps a COMMAND_ACK that was neither accepted nor in progress.
	ErrRejected = errors.New("mavlink: command rejected")
	// ErrPayloadIndex is returned for a payload index with no component id.
	ErrPayloadIndex = errors.New("mavlink: payload index out of range")
)

// cameraTarget is the component id of the camera on payload.
func cameraTarget(payload int) (uint8, error) {
	if payload < 0 || payload > math.MaxUint8-cameraComponent {
		return 0, fmt.Errorf("%w: %d", ErrPayloadIndex, payload)
	}
	return uint8(cameraComponent + payload), nil
}

// params are the seven COMMAND_LONG parameters.
type params [7]float32

// command sends cmd to the autopilot and waits for its COMMAND_ACK.
func (v *Vehicle) command(ctx context.Context, cmd common.MAV_CMD, p params) error {
	return v.commandTo(ctx, 0, cmd, p)
}

// commandTo sends cmd to component comp of the autopilot's system; 0 means the
// autopilot itself.
func (v *Vehicle) commandTo(ctx context.Context, comp uint8, cmd common.MAV_CMD, p params) error {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return osdk.ErrClosed
	}
	if _, busy := v.acks[cmd]; busy {
		v.mu.Unlock()
		return fmt.Errorf("mavlink: command %d already in flight", cmd)
	}
	ack := make(chan common.MAV_RESULT, 1)
	v.acks[cmd] = ack
	target := v.targetSystem
	if comp == 0 {
		comp = v.targetComp
	}
	v.mu.Unlock()

	defer func() {
		v.mu.Lock()
		delete(v.acks, cmd)
		v.mu.Unlock()
	}()

	err := v.link.WriteMessageAll(&common.MessageCommandLong{
		TargetSystem:    target,
		TargetComponent: comp,
		Command:         cmd,
		Param1:          p[0],
		Param2:          p[1],
		Param3:          p[2],
		Param4:          p[3],
		Param5:          p[4],
		Param6:          p[5],
		Param7:          p[6],
	})
	if err != nil {
		return fmt.Errorf("mavlink: send command %d: %w", cmd, err)
	}

	select {
	case res := <-ack:
		switch res {
		case common.MAV_RESULT_ACCEPTED, common.MAV_RESULT_IN_PROGRESS:
			return nil
		case common.MAV_RESULT_UNSUPPORTED:
			return fmt.Errorf("mavlink: command %d: %w", cmd, osdk.ErrNotSupported)
		default:
			return fmt.Errorf("%w: command %d result %d", ErrRejected, cmd, res)
		}
	case <-ctx.Done():
		return fmt.Errorf("mavlink: command %d: %w", cmd, ctx.Err())
	}
}

// requestInterval asks the autopilot to stream message id at freqHz; 0 stops it.
// Stream requests are best effort: an autopilot that ignores them still sends its
// default streams.
func (v *Vehicle) requestInterval(id uint32, freqHz int) {
	interval := float32(-1)
	if freqHz > 0 {
		interval = float32(time.Second/time.Microsecond) / float32(freqHz)
	}
	v.mu.Lock()
	target, comp := v.targetSystem, v.targetComp
	v.mu.Unlock()

	err := v.link.WriteMessageAll(&common.MessageCommandLong{
		TargetSystem:    target,
		TargetComponent: comp,
		Command:         common.MAV_CMD_SET_MESSAGE_INTERVAL,
		Param1:          float32(id),
		Param2:          interval,
	})
	if err != nil {
		log.Printf("mavlink: stream request for message %d failed: %v", id, err)
	}
}

// setParam writes a REAL32 parameter and waits for the autopilot to echo it.
func (v *Vehicle) setParam(ctx context.Context, name string, value float32) error {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return osdk.ErrClosed
	}
	echo := make(chan float32, 1)
	v.params[name] = echo
	target, comp := v.targetSystem, v.targetComp
	v.mu.Unlock()

	defer func() {
		v.mu.Lock()
		delete(v.params, name)
		v.mu.Unlock()
	}()

	err := v.link.WriteMessageAll(&common.MessageParamSet{
		TargetSystem:    target,
		TargetComponent: comp,
		ParamId:         name,
		ParamValue:      value,
		ParamType:       common.MAV_PARAM_TYPE_REAL32,
	})
	if err != nil {
		return fmt.Errorf("mavlink: set %s: %w", name, err)
	}

	select {
	case got := <-echo:
		if got != value {
			return fmt.Errorf("%w: %s stayed at %v", ErrRejected, name, got)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("mavlink: set %s: %w", name, ctx.Err())
	}
}

// positionTarget sends one SET_POSITION_TARGET_LOCAL_NED.
func (v *Vehicle) positionTarget(frame common.MAV_FRAME, mask common.POSITION_TARGET_TYPEMASK, t common.MessageSetPositionTargetLocalNed) error {
	v.mu.Lock()
	t.TargetSystem, t.TargetComponent = v.targetSystem, v.targetComp
	v.mu.Unlock()
	t.TimeBootMs = uint32(time.Since(processStart) / time.Millisecond)
	t.CoordinateFrame = frame
	t.TypeMask = mask
	return v.link.WriteMessageAll(&t)
}

var processStart = time.Now()

const (
	ignoreAccel = common.POSITION_TARGET_TYPEMASK_AX_IGNORE |
		common.POSITION_TARGET_TYPEMASK_AY_IGNORE |
		common.POSITION_TARGET_TYPEMASK_AZ_IGNORE
	ignorePosition = common.POSITION_TARGET_TYPEMASK_X_IGNORE |
		common.POSITION_TARGET_TYPEMASK_Y_IGNORE |
		common.POSITION_TARGET_TYPEMASK_Z_IGNORE
	ignoreVelocity = common.POSITION_TARGET_TYPEMASK_VX_IGNORE |
		common.POSITION_TARGET_TYPEMASK_VY_IGNORE |
		common.POSITION_TARGET_TYPEMASK_VZ_IGNORE

	// positionAndYaw holds a position and a heading.
	positionAndYaw = ignoreVelocity | ignoreAccel | common.POSITION_TARGET_TYPEMASK_YAW_RATE_IGNORE
	// velocityAndYawRate holds a velocity and a turn rate.
	velocityAndYawRate = ignorePosition | ignoreAccel | common.POSITION_TARGET_TYPEMASK_YAW_IGNORE
)
