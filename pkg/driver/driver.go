// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package driver converts whole models into layer networks for a backend.
//
// It picks the conversion policy matching the model version, adds the input and output layers of the
// model around the converted operations, and validates the result. A conversion either produces a
// complete network or fails: partial networks are never returned.
//
// Example:
//
//	d, err := driver.New(driver.Options{Backend: "reference"})
//	if err != nil { ... }
//	prepared, err := d.PrepareModel(ctx, model)
package driver

import (
	"context"
	"fmt"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/nndriver/backends"
	"github.com/gomlx/nndriver/pkg/convert"
	"github.com/gomlx/nndriver/pkg/hal"
	"github.com/gomlx/nndriver/pkg/network"
	"github.com/gomlx/nndriver/pkg/policy/hal10"
	"github.com/gomlx/nndriver/pkg/policy/hal11"
	"github.com/gomlx/nndriver/pkg/support/sets"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Status of the driver.
type Status int

const (
	Available Status = iota
	Busy
	Offline
	Unknown
)

// String implements fmt.Stringer.
func (s Status) String() string {
	switch s {
	case Available:
		return "Available"
	case Busy:
		return "Busy"
	case Offline:
		return "Offline"
	}
	return "Unknown"
}

// Driver converts models for one backend. It is safe for concurrent use: each conversion uses its own
// convert.Context.
type Driver struct {
	options  Options
	backend  backends.Backend
	policies map[hal.Version]*convert.Policy
}

// New creates a Driver with the backend configured in options.
func New(options Options) (*Driver, error) {
	var (
		backend backends.Backend
		err     error
	)
	if options.Backend == "" {
		backend, err = backends.New()
	} else {
		backend, err = backends.NewWithConfig(options.Backend)
	}
	if err != nil {
		return nil, errors.WithMessage(err, "failed to create driver backend")
	}
	return NewWithBackend(backend, options), nil
}

// NewWithBackend creates a Driver for the given backend. options.Backend is ignored.
func NewWithBackend(backend backends.Backend, options Options) *Driver {
	d := &Driver{
		options: options,
		backend: backend,
		policies: map[hal.Version]*convert.Policy{
			hal.V1_0: hal10.Policy(),
			hal.V1_1: hal11.Policy(),
		},
	}
	klog.V(1).Infof("driver created for backend %q (%s) with options %q", backend.Name(), backend.Description(), options)
	return d
}

// Backend used by the driver.
func (d *Driver) Backend() backends.Backend { return d.backend }

// Options of the driver.
func (d *Driver) Options() Options { return d.options }

// Status always returns Available: conversions don't hold any shared resource.
func (d *Driver) Status() Status { return Available }

// Policy returns the conversion policy used for models of the given version.
func (d *Driver) Policy(version hal.Version) (*convert.Policy, error) {
	policy, found := d.policies[version]
	if !found {
		return nil, convert.Unsupportedf("driver", "model version %s not supported", version)
	}
	return policy, nil
}

func (d *Driver) newContext(name string) *convert.Context {
	return convert.NewContext(network.New(name), d.backend).WithLayout(d.options.Layout)
}

// validate checks the model and returns the policy for its version.
func (d *Driver) validate(model *hal.Model) (*convert.Policy, error) {
	if err := model.Validate(); err != nil {
		return nil, convert.WrapMalformed(err, "driver", "invalid model")
	}
	return d.Policy(model.Version)
}

// convertOperation converts one operation, turning panics of the network builder into errors.
func convertOperation(policy *convert.Policy, op *hal.Operation, model *hal.Model, ctx *convert.Context) error {
	var err error
	exception := exceptions.TryCatch[error](func() {
		err = policy.ConvertOperation(op, model, ctx)
	})
	if exception != nil {
		return errors.WithMessagef(exception, "%s: failed while building the network", op.Type)
	}
	return err
}

// GetSupportedOperations returns, for each operation of the model, whether it can be converted for the
// driver's backend.
//
// Operations reading the outputs of an unsupported operation are not supported. If the model inputs
// themselves are not supported, no operation is. A malformed operation is reported as not supported, like
// an unsupported one. Only an invalid model, or a failure while building the network, returns an error.
func (d *Driver) GetSupportedOperations(model *hal.Model) ([]bool, error) {
	policy, err := d.validate(model)
	if err != nil {
		return nil, err
	}
	supported := make([]bool, len(model.Operations))
	ctx := d.newContext("supported-operations")
	if err := convert.AddInputLayers(model, ctx); err != nil {
		if convert.IsUnsupported(err) {
			klog.V(1).Infof("model inputs not supported: %v", err)
			return supported, nil
		}
		return nil, err
	}

	failedOperands := sets.Make[uint32]()
	for ii := range model.Operations {
		op := &model.Operations[ii]
		dependsOnFailure := false
		for _, idx := range op.Inputs {
			if failedOperands.Has(idx) {
				dependsOnFailure = true
				break
			}
		}
		if dependsOnFailure {
			klog.V(1).Infof("operation #%d %s not supported: it depends on an unsupported operation", ii, op.Type)
		} else {
			err := convertOperation(policy, op, model, ctx)
			if err == nil {
				supported[ii] = true
				continue
			}
			if !convert.IsUnsupported(err) && !convert.IsMalformed(err) {
				return nil, errors.WithMessagef(err, "operation #%d", ii)
			}
			klog.V(1).Infof("operation #%d %s not supported: %v", ii, op.Type, err)
		}
		if !d.options.ContinueOnFailure {
			break
		}
		failedOperands.Insert(op.Outputs...)
	}
	return supported, nil
}

// PreparedModel is the result of a model conversion.
type PreparedModel struct {
	// ID uniquely identifies the preparation.
	ID uuid.UUID

	// Network is the complete and validated layer network.
	Network *network.Network

	// Float16 is true if the float32 tensors of the network were reduced to float16.
	Float16 bool
}

// String implements fmt.Stringer.
func (p *PreparedModel) String() string {
	return fmt.Sprintf("PreparedModel(%s, %d layers, float16=%v)", p.ID, p.Network.NumLayers(), p.Float16)
}

// PrepareModel converts the full model into a network: an input layer per model input, the layers of every
// operation, and an output layer per model output.
//
// ctx is checked between operations: if it is cancelled the conversion is abandoned and ctx's error
// returned. Any failure discards the network.
func (d *Driver) PrepareModel(ctx context.Context, model *hal.Model) (*PreparedModel, error) {
	policy, err := d.validate(model)
	if err != nil {
		return nil, err
	}
	prepared := &PreparedModel{ID: uuid.New()}
	convCtx := d.newContext(prepared.ID.String())
	prepared.Network = convCtx.Network

	if err := convert.AddInputLayers(model, convCtx); err != nil {
		return nil, err
	}
	for ii := range model.Operations {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrapf(err, "model preparation interrupted before operation #%d", ii)
		}
		if err := convertOperation(policy, &model.Operations[ii], model, convCtx); err != nil {
			return nil, errors.WithMessagef(err, "operation #%d", ii)
		}
	}
	if err := convert.AddOutputLayers(model, convCtx); err != nil {
		return nil, err
	}
	if err := prepared.Network.Validate(); err != nil {
		return nil, convert.WrapMalformed(err, "driver", "invalid network")
	}

	if d.options.Float32ToFloat16 || model.RelaxComputationFloat32toFloat16 {
		if d.backend.Capabilities().DTypes[dtypes.Float16] {
			prepared.Network.ReduceFloat32ToFloat16()
			prepared.Float16 = true
		} else {
			klog.Warningf("backend %q doesn't support float16, float32 tensors of model %s are kept",
				d.backend.Name(), prepared.ID)
		}
	}
	klog.Infof("prepared model %s (version %s): %d operations converted to %d layers",
		prepared.ID, model.Version, len(model.Operations), prepared.Network.NumLayers())
	return prepared, nil
}
