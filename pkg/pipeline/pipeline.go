// Package pipeline sequences the four steps that turn a transaction hash
// into a published agreement: decode, attest, generate, publish. Each
// invocation owns its Run; nothing is shared across concurrent invocations.
package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nexagreement/agreementd/pkg/agreement"
	"github.com/nexagreement/agreementd/pkg/attestation"
	"github.com/nexagreement/agreementd/pkg/decoder"
	"github.com/nexagreement/agreementd/pkg/publisher"
	"github.com/nexagreement/agreementd/pkg/purchase"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Run is the state of one pipeline invocation. Steps is an append-only
// trace; the remaining fields are filled progressively as steps succeed. A
// Run is transient and never persisted.
type Run struct {
	Id              uuid.UUID
	TransactionHash string
	Status          Status
	Steps           []string
	Record          *purchase.Record
	Attestation     *attestation.Result
	Document        *agreement.Document
	StorageUrl      string
}

func (r *Run) appendStep(step string) {
	r.Steps = append(r.Steps, step)
}

type Pipeline struct {
	Decoder   *decoder.Decoder
	Verifier  *attestation.Verifier
	Generator *agreement.Generator
	Publisher *publisher.Publisher
	Logger    *zap.Logger
}

func NewPipeline(
	d *decoder.Decoder,
	v *attestation.Verifier,
	g *agreement.Generator,
	p *publisher.Publisher,
	l *zap.Logger,
) *Pipeline {
	return &Pipeline{
		Decoder:   d,
		Verifier:  v,
		Generator: g,
		Publisher: p,
		Logger:    l,
	}
}

// Process runs the full pipeline for one transaction hash. Decode,
// generate and publish failures are fatal and end the run immediately; an
// attestation failure is traced and the run continues without it.
func (p *Pipeline) Process(ctx context.Context, txHash string) *Run {
	run := &Run{
		Id:              uuid.New(),
		TransactionHash: txHash,
		Status:          StatusPending,
		Steps:           []string{},
	}

	record, err := p.Decoder.Decode(ctx, txHash)
	if err != nil {
		p.Logger.Sugar().Errorw("Transaction validation failed",
			zap.String("transactionHash", txHash),
			zap.Error(err),
		)
		run.Status = StatusFailed
		run.appendStep(err.Error())
		return run
	}
	run.Record = record
	run.appendStep("validated")

	run.Attestation = p.Verifier.Verify(ctx, txHash)
	if run.Attestation.Success {
		run.appendStep("attested")
	} else {
		// Non-fatal: the agreement simply omits the attestation section.
		p.Logger.Sugar().Warnw("Proceeding without attestation",
			zap.String("transactionHash", txHash),
			zap.String("reason", run.Attestation.Error),
		)
		run.appendStep("attestation failed: " + run.Attestation.Error)
	}

	document, err := p.Generator.Generate(record, run.Attestation, time.Now())
	if err != nil {
		p.Logger.Sugar().Errorw("Agreement generation failed",
			zap.String("transactionHash", txHash),
			zap.Error(err),
		)
		run.Status = StatusFailed
		run.appendStep(err.Error())
		return run
	}
	run.Document = document
	run.appendStep("document generated")

	storageUrl, err := p.Publisher.Publish(ctx, document)
	if err != nil {
		p.Logger.Sugar().Errorw("Agreement upload failed",
			zap.String("transactionHash", txHash),
			zap.Error(err),
		)
		run.Status = StatusFailed
		run.appendStep(err.Error())
		return run
	}
	run.StorageUrl = storageUrl
	run.appendStep("published")
	run.Status = StatusCompleted

	p.Logger.Sugar().Infow("Pipeline run completed",
		zap.String("runId", run.Id.String()),
		zap.String("transactionHash", txHash),
		zap.String("storageUrl", storageUrl),
	)
	return run
}

// ProcessTransaction is the entry point consumed by the surrounding
// application: it returns the storage locator on success, or an error whose
// message is the accumulated trace.
func (p *Pipeline) ProcessTransaction(ctx context.Context, txHash string) (string, error) {
	run := p.Process(ctx, txHash)
	if run.Status != StatusCompleted {
		return "", errors.New(strings.Join(run.Steps, "; "))
	}
	return run.StorageUrl, nil
}
