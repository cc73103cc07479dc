package schema

import "strings"

// CanonicalField is a normalized field name in the medicines register.
// The set is closed: every column the store knows about is listed here,
// and the importer never invents new ones at runtime.
type CanonicalField string

const (
	FieldCategory              CanonicalField = "category"
	FieldMedicineName          CanonicalField = "medicine_name"
	FieldTherapeuticArea       CanonicalField = "therapeutic_area"
	FieldINN                   CanonicalField = "inn"
	FieldActiveSubstance       CanonicalField = "active_substance"
	FieldProductNumber         CanonicalField = "product_number"
	FieldPatientSafety         CanonicalField = "patient_safety"
	FieldAuthorisationStatus   CanonicalField = "authorisation_status"
	FieldATCCode               CanonicalField = "atc_code"
	FieldATCVetCode            CanonicalField = "atcvet_code"
	FieldConditionIndication   CanonicalField = "condition_indication"
	FieldSpecies               CanonicalField = "species"
	FieldPharmGroup            CanonicalField = "pharmacotherapeutic_group"
	FieldVetPharmGroup         CanonicalField = "vet_pharmacotherapeutic_group"
	FieldHolder                CanonicalField = "marketing_authorisation_holder"
	FieldDeveloper             CanonicalField = "marketing_authorisation_developer"
	FieldRevisionNumber        CanonicalField = "revision_number"
	FieldURL                   CanonicalField = "url"

	// Boolean-ish flags. The source stores these as free text ("yes", "no",
	// sometimes longer phrases), so they stay opaque text here too.
	FieldAdditionalMonitoring     CanonicalField = "additional_monitoring"
	FieldGenericOrHybrid          CanonicalField = "generic_or_hybrid"
	FieldBiosimilar               CanonicalField = "biosimilar"
	FieldConditionalApproval      CanonicalField = "conditional_approval"
	FieldExceptionalCircumstances CanonicalField = "exceptional_circumstances"
	FieldAcceleratedAssessment    CanonicalField = "accelerated_assessment"
	FieldOrphanMedicine           CanonicalField = "orphan_medicine"
	FieldAdvancedTherapy          CanonicalField = "advanced_therapy"
	FieldPrime                    CanonicalField = "prime_priority_medicine"

	// Dates, stored as ISO-like text. Range filters compare lexically.
	FieldAuthorisationDate  CanonicalField = "marketing_authorisation_date"
	FieldRefusalDate        CanonicalField = "refusal_date"
	FieldDateOfOpinion      CanonicalField = "date_of_opinion"
	FieldDecisionDate       CanonicalField = "decision_date"
	FieldFirstPublished     CanonicalField = "first_published"
	FieldRevisionDate       CanonicalField = "revision_date"
	FieldStartOfEvaluation  CanonicalField = "start_of_evaluation"
	FieldStartRollingReview CanonicalField = "start_of_rolling_review"
	FieldOpinionAdopted     CanonicalField = "opinion_adopted"
	FieldWithdrawalOfApp    CanonicalField = "withdrawal_of_application"
	FieldAuthWithdrawalDate CanonicalField = "marketing_authorisation_withdrawal_date"
	FieldSuspensionDate     CanonicalField = "suspension_date"
)

// allFields is the canonical column order. Insert and select statements are
// generated from this slice, so the order is load-bearing: never reorder,
// only append.
var allFields = []CanonicalField{
	FieldCategory,
	FieldMedicineName,
	FieldTherapeuticArea,
	FieldINN,
	FieldActiveSubstance,
	FieldProductNumber,
	FieldPatientSafety,
	FieldAuthorisationStatus,
	FieldATCCode,
	FieldATCVetCode,
	FieldConditionIndication,
	FieldSpecies,
	FieldPharmGroup,
	FieldVetPharmGroup,
	FieldHolder,
	FieldDeveloper,
	FieldRevisionNumber,
	FieldURL,
	FieldAdditionalMonitoring,
	FieldGenericOrHybrid,
	FieldBiosimilar,
	FieldConditionalApproval,
	FieldExceptionalCircumstances,
	FieldAcceleratedAssessment,
	FieldOrphanMedicine,
	FieldAdvancedTherapy,
	FieldPrime,
	FieldAuthorisationDate,
	FieldRefusalDate,
	FieldDateOfOpinion,
	FieldDecisionDate,
	FieldFirstPublished,
	FieldRevisionDate,
	FieldStartOfEvaluation,
	FieldStartRollingReview,
	FieldOpinionAdopted,
	FieldWithdrawalOfApp,
	FieldAuthWithdrawalDate,
	FieldSuspensionDate,
}

var fieldSet = func() map[CanonicalField]bool {
	m := make(map[CanonicalField]bool, len(allFields))
	for _, f := range allFields {
		m[f] = true
	}
	return m
}()

// AllFields returns the canonical fields in column order.
func AllFields() []CanonicalField {
	out := make([]CanonicalField, len(allFields))
	copy(out, allFields)
	return out
}

// Lookup resolves an arbitrary field name (e.g. from a query parameter) to a
// canonical field. Unknown names return false.
func Lookup(name string) (CanonicalField, bool) {
	f := CanonicalField(name)
	return f, fieldSet[f]
}

// RequiredFields are the fields a row must carry to be importable.
var RequiredFields = []CanonicalField{FieldMedicineName, FieldCategory}

// SearchFields are matched by the global free-text search parameter.
var SearchFields = []CanonicalField{
	FieldMedicineName,
	FieldINN,
	FieldActiveSubstance,
	FieldTherapeuticArea,
	FieldConditionIndication,
	FieldHolder,
	FieldProductNumber,
}

// headerAliases maps normalized raw CSV headers to canonical fields. The
// register's snapshot headers carry punctuation and embedded newlines that
// NormalizeHeader flattens; the keys below are the flattened forms, including
// the irregular ones ("non-proprietary" keeps its hyphen, the PRIME header
// keeps its colon). Headers not in this table are dropped on import, which is
// deliberate: new report columns must not break ingestion.
var headerAliases = map[string]CanonicalField{
	"category":          FieldCategory,
	"medicine_name":     FieldMedicineName,
	"name_of_medicine":  FieldMedicineName,
	"therapeutic_area":  FieldTherapeuticArea,
	"therapeutic_area_mesh": FieldTherapeuticArea,
	"international_non-proprietary_name_inn_common_name": FieldINN,
	"inn_common_name":  FieldINN,
	"active_substance": FieldActiveSubstance,
	"product_number":   FieldProductNumber,
	"ema_product_number": FieldProductNumber,
	"patient_safety":       FieldPatientSafety,
	"authorisation_status": FieldAuthorisationStatus,
	"medicine_status":      FieldAuthorisationStatus,
	"atc_code":             FieldATCCode,
	"atcvet_code":          FieldATCVetCode,
	"condition_indication": FieldConditionIndication,
	"species":              FieldSpecies,
	"pharmacotherapeutic_group":       FieldPharmGroup,
	"pharmacotherapeutic_group_human": FieldPharmGroup,
	"pharmacotherapeutic_group_vet":   FieldVetPharmGroup,
	"marketing_authorisation_holdercompany_name": FieldHolder,
	"marketing_authorisation_holder":              FieldHolder,
	"marketing_authorisation_developer":           FieldDeveloper,
	"marketing_authorisation_developer_applicant": FieldDeveloper,
	"revision_number": FieldRevisionNumber,
	"url":             FieldURL,
	"medicine_url":    FieldURL,

	"additional_monitoring":     FieldAdditionalMonitoring,
	"generic_or_hybrid":         FieldGenericOrHybrid,
	"generic":                   FieldGenericOrHybrid,
	"biosimilar":                FieldBiosimilar,
	"conditional_approval":      FieldConditionalApproval,
	"exceptional_circumstances": FieldExceptionalCircumstances,
	"accelerated_assessment":    FieldAcceleratedAssessment,
	"orphan_medicine":           FieldOrphanMedicine,
	"advanced_therapy":          FieldAdvancedTherapy,
	"prime:_priority_medicine":  FieldPrime,
	"prime_priority_medicine":   FieldPrime,

	"marketing_authorisation_date": FieldAuthorisationDate,
	"date_of_refusal_of_marketing_authorisation": FieldRefusalDate,
	"date_of_opinion": FieldDateOfOpinion,
	"decision_date":   FieldDecisionDate,
	"first_published": FieldFirstPublished,
	"revision_date":   FieldRevisionDate,
	"start_of_evaluation":     FieldStartOfEvaluation,
	"start_of_rolling_review": FieldStartRollingReview,
	"opinion_adopted":         FieldOpinionAdopted,
	"withdrawal_of_application": FieldWithdrawalOfApp,
	"marketing_authorisation_withdrawal_date": FieldAuthWithdrawalDate,
	"suspension_date": FieldSuspensionDate,
}

// NormalizeHeader canonicalizes a raw CSV header into a dictionary key:
// surrounding whitespace trimmed, embedded newlines flattened, runs of
// whitespace collapsed to a single underscore, parentheses and slashes
// removed, everything lowercased. Idempotent.
func NormalizeHeader(h string) string {
	s := strings.ToLower(h)
	s = strings.NewReplacer("\r", " ", "\n", " ", "(", "", ")", "", "/", "").Replace(s)
	return strings.Join(strings.Fields(s), "_")
}

// MapHeader resolves a normalized header key to its canonical field.
// Unmapped headers return false; callers drop those columns silently.
func MapHeader(key string) (CanonicalField, bool) {
	f, ok := headerAliases[key]
	return f, ok
}
