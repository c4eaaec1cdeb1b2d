package guardrail

// ApplyAutoFix returns a copy of req with the suggested table and payload.
// req is never mutated.
func ApplyAutoFix(req Request, fix *AutoFix) Request {
	out := Request{
		Table:     req.Table,
		Operation: req.Operation,
		Payload:   req.Payload.Clone(),
	}
	if fix == nil {
		return out
	}
	if fix.Table != "" {
		out.Table = fix.Table
	}
	if fix.Payload != nil {
		out.Payload = fix.Payload.Clone()
	}
	if len(fix.Renames) > 0 && fix.Payload == nil {
		out.Payload = renamePayload(out.Payload, fix.Renames)
	}
	return out
}

// FixAndValidate applies the auto-fix of an invalid result, when one exists, and
// validates the corrected request. The returned bool reports whether a fix was applied.
func FixAndValidate(req Request) (Request, Result, bool) {
	res := Validate(req)
	if res.Valid || res.AutoFix == nil {
		return req, res, false
	}
	fixed := ApplyAutoFix(req, res.AutoFix)
	return fixed, Validate(fixed), true
}
