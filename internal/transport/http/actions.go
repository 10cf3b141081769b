package http

import (
	"context"
	"time"

	"seopilot/internal/config"
	"seopilot/internal/content"
	"seopilot/internal/license"
	"seopilot/internal/operations"
	"seopilot/internal/optimizer"
	api "seopilot/pkg/contracts/api/v1"
	"seopilot/pkg/contracts/domain"
)

// Admin action names
const (
	ActionResetDefaults      = "reset_defaults"
	ActionSaveSettings       = "save_settings"
	ActionGetSettings        = "get_settings"
	ActionSavePrompts        = "save_prompts"
	ActionBulkStart          = "bulk_start"
	ActionBulkStep           = "bulk_step"
	ActionBulkAbort          = "bulk_abort"
	ActionBulkStatus         = "bulk_status"
	ActionOptimizeSingle     = "optimize_single"
	ActionManualLicenseCheck = "manual_license_check"
	ActionSaveLicenseKey     = "save_license_key"
	ActionLicenseStatus      = "license_status"
	ActionSaveBrandProfile   = "save_brand_profile"
	ActionExportSettings     = "export_settings"
	ActionImportSettings     = "import_settings"
)

// ActionDeps are the services behind the admin actions
type ActionDeps struct {
	Content   *content.Service
	Optimizer *optimizer.Service
	Runner    *operations.Runner
	Licenses  *license.Repository
	Client    *license.Client
	Cache     *license.Cache
}

// RegisterActions fills the gateway's dispatch table
func RegisterActions(g *Gateway, d ActionDeps) {
	h := &actionHandlers{deps: d}
	for _, a := range []struct {
		name   string
		handle ActionFunc
	}{
		{ActionResetDefaults, h.resetDefaults},
		{ActionSaveSettings, h.saveSettings},
		{ActionGetSettings, h.getSettings},
		{ActionSavePrompts, h.savePrompts},
		{ActionBulkStart, h.bulkStart},
		{ActionBulkStep, h.bulkStep},
		{ActionBulkAbort, h.bulkAbort},
		{ActionBulkStatus, h.bulkStatus},
		{ActionOptimizeSingle, h.optimizeSingle},
		{ActionManualLicenseCheck, h.manualLicenseCheck},
		{ActionSaveLicenseKey, h.saveLicenseKey},
		{ActionLicenseStatus, h.licenseStatus},
		{ActionSaveBrandProfile, h.saveBrandProfile},
		{ActionExportSettings, h.exportSettings},
		{ActionImportSettings, h.importSettings},
	} {
		g.Register(Action{Name: a.name, Capability: config.CapabilityManageOptions, Handle: a.handle})
	}
}

type actionHandlers struct {
	deps ActionDeps
}

func (h *actionHandlers) category(ctx context.Context, postType string) (api.CategoryResponse, error) {
	settings, err := h.deps.Content.Settings(ctx, postType)
	if err != nil {
		return api.CategoryResponse{}, err
	}
	prompts, err := h.deps.Content.Prompts(ctx, postType)
	if err != nil {
		return api.CategoryResponse{}, err
	}
	return api.CategoryResponse{PostType: postType, Settings: settings, Prompts: prompts}, nil
}

func (h *actionHandlers) resetDefaults(ctx context.Context, req *ActionRequest) (interface{}, error) {
	var in api.PostTypeRequest
	if err := req.Decode(&in); err != nil {
		return nil, err
	}
	if err := h.deps.Content.ResetDefaults(ctx, in.PostType); err != nil {
		return nil, err
	}
	return h.category(ctx, in.PostType)
}

func (h *actionHandlers) saveSettings(ctx context.Context, req *ActionRequest) (interface{}, error) {
	var in api.SaveSettingsRequest
	if err := req.Decode(&in); err != nil {
		return nil, err
	}
	settings, err := h.deps.Content.SaveSettings(ctx, in.PostType, in.Settings)
	if err != nil {
		return nil, err
	}
	return settings, nil
}

func (h *actionHandlers) getSettings(ctx context.Context, req *ActionRequest) (interface{}, error) {
	var in api.PostTypeRequest
	if err := req.Decode(&in); err != nil {
		return nil, err
	}
	return h.category(ctx, in.PostType)
}

func (h *actionHandlers) savePrompts(ctx context.Context, req *ActionRequest) (interface{}, error) {
	var in api.SavePromptsRequest
	if err := req.Decode(&in); err != nil {
		return nil, err
	}
	if err := h.deps.Content.SavePrompts(ctx, in.PostType, in.Prompts); err != nil {
		return nil, err
	}
	return in.Prompts, nil
}

func (h *actionHandlers) bulkStart(ctx context.Context, req *ActionRequest) (interface{}, error) {
	var in api.BulkStartRequest
	if err := req.Decode(&in); err != nil {
		return nil, err
	}
	return h.deps.Runner.Start(ctx, in.ItemIDs)
}

func (h *actionHandlers) bulkStep(ctx context.Context, req *ActionRequest) (interface{}, error) {
	var in api.BulkStepRequest
	if err := req.Decode(&in); err != nil {
		return nil, err
	}
	return h.deps.Runner.Step(ctx, in.JobID, in.Cursor)
}

func (h *actionHandlers) bulkAbort(ctx context.Context, req *ActionRequest) (interface{}, error) {
	var in api.JobRequest
	if err := req.Decode(&in); err != nil {
		return nil, err
	}
	return h.deps.Runner.Abort(ctx, in.JobID)
}

func (h *actionHandlers) bulkStatus(ctx context.Context, req *ActionRequest) (interface{}, error) {
	var in api.JobRequest
	if err := req.Decode(&in); err != nil {
		return nil, err
	}
	return h.deps.Runner.Job(in.JobID)
}

func (h *actionHandlers) optimizeSingle(ctx context.Context, req *ActionRequest) (interface{}, error) {
	var in api.OptimizeSingleRequest
	if err := req.Decode(&in); err != nil {
		return nil, err
	}
	return h.deps.Optimizer.OptimizeItem(ctx, in.ItemID)
}

func (h *actionHandlers) manualLicenseCheck(ctx context.Context, req *ActionRequest) (interface{}, error) {
	outcome, err := h.deps.Cache.ForceCheck(ctx)
	if err != nil {
		return nil, err
	}
	return api.LicenseCheckResponse{
		LicenseStatusResponse: licenseStatusResponse(outcome.Record),
		Checked:               outcome.Checked,
		Error:                 outcome.Error,
	}, nil
}

func (h *actionHandlers) saveLicenseKey(ctx context.Context, req *ActionRequest) (interface{}, error) {
	var in api.SaveLicenseKeyRequest
	if err := req.Decode(&in); err != nil {
		return nil, err
	}
	record, err := h.deps.Client.Activate(ctx, in.LicenseKey)
	if err != nil {
		return nil, err
	}
	return licenseStatusResponse(record), nil
}

func (h *actionHandlers) licenseStatus(ctx context.Context, req *ActionRequest) (interface{}, error) {
	record, err := h.deps.Licenses.Record(ctx)
	if err != nil {
		return nil, err
	}
	return licenseStatusResponse(record), nil
}

func (h *actionHandlers) saveBrandProfile(ctx context.Context, req *ActionRequest) (interface{}, error) {
	var in domain.BrandProfile
	if err := req.Decode(&in); err != nil {
		return nil, err
	}
	return h.deps.Content.SaveBrand(ctx, in)
}

func (h *actionHandlers) exportSettings(ctx context.Context, req *ActionRequest) (interface{}, error) {
	return h.deps.Content.Export(ctx)
}

func (h *actionHandlers) importSettings(ctx context.Context, req *ActionRequest) (interface{}, error) {
	var in api.ImportSettingsRequest
	if err := req.Decode(&in); err != nil {
		return nil, err
	}
	return h.deps.Content.Import(ctx, in.Document)
}

func licenseStatusResponse(record domain.LicenseRecord) api.LicenseStatusResponse {
	resp := api.LicenseStatusResponse{
		Key:    license.MaskKey(record.Key),
		Status: record.Status,
		Active: record.Status.Active(),
	}
	if record.Key == "" {
		resp.Key = ""
	}
	if !record.LastCheck.IsZero() {
		lc := record.LastCheck.UTC().Truncate(time.Second)
		resp.LastCheck = &lc
	}
	return resp
}
