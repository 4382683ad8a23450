// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package convert

import (
	"slices"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/nndriver/pkg/hal"
	"github.com/gomlx/nndriver/pkg/support/sets"
	"k8s.io/klog/v2"
)

// ConvertFunc converts one operation of the model, adding its layers to ctx.Network and tracking its outputs.
type ConvertFunc func(op *hal.Operation, model *hal.Model, ctx *Context) error

// Delegation re-encodes operations that an older Policy also handles, and dispatches them to it.
type Delegation struct {
	// Name used in logs.
	Name string

	// Compliant returns whether the operation can be handled by Target.
	Compliant func(op *hal.Operation, model *hal.Model) bool

	// Translate returns the operation and the view of the model as seen by Target.
	Translate func(op *hal.Operation, model *hal.Model) (*hal.Operation, *hal.Model)

	Target *Policy
}

// Policy converts the operations of one version of the operation set.
//
// Delegations are tried first, in the order they were added. Operations not delegated are converted with the
// ConvertFunc registered for their type.
type Policy struct {
	Name    string
	Version hal.Version

	converters  map[hal.OperationType]ConvertFunc
	delegations []Delegation
}

// NewPolicy creates an empty Policy.
func NewPolicy(name string, version hal.Version) *Policy {
	return &Policy{
		Name:       name,
		Version:    version,
		converters: make(map[hal.OperationType]ConvertFunc),
	}
}

// Register the converter for the operation type. It panics if one is already registered.
func (p *Policy) Register(opType hal.OperationType, fn ConvertFunc) *Policy {
	if _, found := p.converters[opType]; found {
		exceptions.Panicf("policy %q: converter for %s registered twice", p.Name, opType)
	}
	p.converters[opType] = fn
	return p
}

// Delegate appends a Delegation.
func (p *Policy) Delegate(d Delegation) *Policy {
	if d.Target == nil || d.Compliant == nil || d.Translate == nil {
		exceptions.Panicf("policy %q: delegation %q is incomplete", p.Name, d.Name)
	}
	p.delegations = append(p.delegations, d)
	return p
}

// ConvertOperation converts op, either by delegating it or with the registered converter.
func (p *Policy) ConvertOperation(op *hal.Operation, model *hal.Model, ctx *Context) error {
	if err := ctx.CheckOutputsUnregistered(op); err != nil {
		return err
	}
	for _, d := range p.delegations {
		if d.Compliant(op, model) {
			klog.V(1).Infof("policy %q: %s delegated to %q via %q", p.Name, op, d.Target.Name, d.Name)
			targetOp, targetModel := d.Translate(op, model)
			return d.Target.ConvertOperation(targetOp, targetModel, ctx)
		}
	}
	fn, found := p.converters[op.Type]
	if !found {
		return Unsupportedf(p.Name, "Operation type %s not supported", op.Type)
	}
	if err := fn(op, model, ctx); err != nil {
		klog.V(1).Infof("policy %q: failed to convert %s: %v", p.Name, op, err)
		return err
	}
	return nil
}

// Handles returns whether the Policy can dispatch the operation type, directly or by delegation.
func (p *Policy) Handles(opType hal.OperationType) bool {
	return slices.Contains(p.SupportedOperations(), opType)
}

// SupportedOperations lists, sorted, the operation types with a registered converter in the Policy or in its
// delegation targets.
func (p *Policy) SupportedOperations() []hal.OperationType {
	set := sets.Make[hal.OperationType]()
	p.collectOperations(set)
	return sets.Sorted(set)
}

func (p *Policy) collectOperations(set sets.Set[hal.OperationType]) {
	for opType := range p.converters {
		set.Insert(opType)
	}
	for _, d := range p.delegations {
		d.Target.collectOperations(set)
	}
}
