package artifacts

import (
	"path/filepath"

	"github.com/cryptorun/btcore/internal/canonical"
	"github.com/cryptorun/btcore/internal/corerr"
	"github.com/cryptorun/btcore/internal/engine"
	"github.com/cryptorun/btcore/internal/ideacard"
	"github.com/cryptorun/btcore/internal/preflight"
)

// ResultManifest is the top-level result.json payload: everything needed
// to identify, reproduce, and audit one completed run without opening any
// of the parquet files (spec §4.7).
type ResultManifest struct {
	IdeaHash        string            `json:"idea_hash"`
	FeatureSpecIDs  map[string]string `json:"feature_spec_ids"`
	RunHash         string            `json:"run_hash"`
	TradesHash      string            `json:"trades_hash"`
	EquityHash      string            `json:"equity_hash"`
	StopReason      string            `json:"stop_reason"`
	BarsSimulated   int               `json:"bars_simulated"`
	FinalEquityUSDT float64           `json:"final_equity_usdt"`
	Metrics         Metrics           `json:"metrics"`
}

// PipelineSignature pins down the exact toolchain/dependency identity a
// run was produced under, so a replay can detect drift before trusting a
// bit-for-bit hash match.
type PipelineSignature struct {
	IdeaHash      string `json:"idea_hash"`
	RegistryTypes []string `json:"registry_indicator_types"`
	EngineVersion string `json:"engine_version"`
}

// featureSpecIDs walks every configured role and collects output_key ->
// feature_spec_id, which is what a consumer actually needs to correlate
// a parquet column with the indicator definition that produced it.
func featureSpecIDs(card *ideacard.IdeaCard) map[string]string {
	ids := map[string]string{}
	collect := func(tfc *ideacard.TFConfig) {
		if tfc == nil {
			return
		}
		for _, fs := range tfc.FeatureSpecs {
			ids[fs.OutputKey] = fs.FeatureSpecID
		}
	}
	collect(&card.TFConfigs.Exec)
	collect(card.TFConfigs.MedTF)
	collect(card.TFConfigs.HighTF)
	return ids
}

// WriteRunArtifacts persists every artifact a completed run produces:
// trades.parquet, equity.parquet, account_curve.parquet, result.json,
// pipeline_signature.json, and preflight_report.json, all via
// temp-then-rename so a reader under outDir never observes a partial
// write.
func WriteRunArtifacts(outDir string, card *ideacard.IdeaCard, result *engine.Result, report *preflight.Report, registryTypes []string, engineVersion string) (*ResultManifest, error) {
	if err := ensureDir(outDir); err != nil {
		return nil, err
	}

	if err := WriteTradesParquet(filepath.Join(outDir, "trades.parquet"), result.Trades); err != nil {
		return nil, err
	}
	if err := WriteEquityParquet(filepath.Join(outDir, "equity.parquet"), result.EquityCurve); err != nil {
		return nil, err
	}
	if err := WriteAccountCurveParquet(filepath.Join(outDir, "account_curve.parquet"), result.AccountCurve); err != nil {
		return nil, err
	}

	tradesHash, err := ComputeTradesHash(result.Trades)
	if err != nil {
		return nil, err
	}
	equityHash, err := ComputeEquityHash(result.EquityCurve)
	if err != nil {
		return nil, err
	}
	runHash, err := ComputeRunHash(card.IdeaHash, tradesHash, equityHash)
	if err != nil {
		return nil, err
	}

	metrics := Compute(result.Trades, result.EquityCurve, result.FinalLedger)
	metrics.RejectionCounts = result.RejectionCounts

	manifest := &ResultManifest{
		IdeaHash:        card.IdeaHash,
		FeatureSpecIDs:  featureSpecIDs(card),
		RunHash:         runHash,
		TradesHash:      tradesHash,
		EquityHash:      equityHash,
		StopReason:      string(result.StopReason),
		BarsSimulated:   result.BarsSimulated,
		FinalEquityUSDT: result.FinalLedger.EquityUSDT,
		Metrics:         metrics,
	}

	manifestJSON, err := canonical.JSON(manifest)
	if err != nil {
		return nil, corerr.Wrap(corerr.ArtifactWriteFailed, err, "encoding result.json")
	}
	if err := joinAtomic(outDir, "result.json", manifestJSON); err != nil {
		return nil, err
	}

	sig := &PipelineSignature{
		IdeaHash:      card.IdeaHash,
		RegistryTypes: registryTypes,
		EngineVersion: engineVersion,
	}
	sigJSON, err := canonical.JSON(sig)
	if err != nil {
		return nil, corerr.Wrap(corerr.ArtifactWriteFailed, err, "encoding pipeline_signature.json")
	}
	if err := joinAtomic(outDir, "pipeline_signature.json", sigJSON); err != nil {
		return nil, err
	}

	reportJSON, err := canonical.JSON(report)
	if err != nil {
		return nil, corerr.Wrap(corerr.ArtifactWriteFailed, err, "encoding preflight_report.json")
	}
	if err := joinAtomic(outDir, "preflight_report.json", reportJSON); err != nil {
		return nil, err
	}

	return manifest, nil
}
