package catalog

import "github.com/civicbench/council-cli/internal/model"

// BuiltinDefinitions returns the standard metric set. Order matters: it is
// the catalog order used for tier-4 scanning and profile resolution.
func BuiltinDefinitions() []Definition {
	return []Definition{
		// Financial (high availability expected)
		{
			CanonicalName:        "rates_revenue_per_capita",
			DisplayName:          "Rates Revenue per Capita",
			Category:             model.CategoryFinancial,
			Description:          "Annual rates revenue divided by population served",
			Unit:                 "$ per person",
			ExpectedAvailability: 0.95,
			DerivationFormula:    "rates_revenue / population_served",
			AlternativeNames:     []string{"rates_revenue", "general_rates", "council_rates"},
		},
		{
			CanonicalName:        "total_revenue_per_capita",
			DisplayName:          "Total Revenue per Capita",
			Category:             model.CategoryFinancial,
			Description:          "Total council revenue per capita",
			Unit:                 "$ per person",
			ExpectedAvailability: 0.90,
			DerivationFormula:    "total_revenue / population_served",
		},
		{
			CanonicalName:        "operating_deficit_ratio",
			DisplayName:          "Operating Deficit Ratio",
			Category:             model.CategoryFinancial,
			Description:          "Operating deficit as percentage of total revenue",
			Unit:                 "%",
			LowerIsBetter:        true,
			ExpectedAvailability: 0.85,
			DerivationFormula:    "(total_expenditure - total_revenue) / total_revenue * 100",
		},

		// Service delivery
		{
			CanonicalName:        "complaint_response_time",
			DisplayName:          "Average Complaint Response Time",
			Category:             model.CategoryServiceDelivery,
			Description:          "Average time to respond to citizen complaints",
			Unit:                 "days",
			LowerIsBetter:        true,
			ExpectedAvailability: 0.70,
			AlternativeNames:     []string{"complaint_response_time", "service_response_time", "complaints_handling_time"},
		},
		{
			CanonicalName:        "waste_collection_efficiency",
			DisplayName:          "Waste Collection Efficiency",
			Category:             model.CategoryServiceDelivery,
			Description:          "Percentage of scheduled waste collections completed on time",
			Unit:                 "%",
			ExpectedAvailability: 0.75,
			AlternativeNames:     []string{"waste_collection_efficiency", "kerbside_collection_rate", "waste_service_efficiency"},
		},
		{
			CanonicalName:        "planning_approval_time",
			DisplayName:          "Planning Application Approval Time",
			Category:             model.CategoryServiceDelivery,
			Description:          "Average time for planning application approval",
			Unit:                 "days",
			LowerIsBetter:        true,
			ExpectedAvailability: 0.65,
			AlternativeNames:     []string{"planning_approval_time", "dap_approval_time", "development_approval_time"},
		},

		// Infrastructure
		{
			CanonicalName:        "roads_maintained_per_capita",
			DisplayName:          "Roads Maintained per Capita",
			Category:             model.CategoryInfrastructure,
			Description:          "Length of roads maintained per capita",
			Unit:                 "metres per person",
			ExpectedAvailability: 0.80,
			DerivationFormula:    "roads_maintained_km * 1000 / population_served",
			AlternativeNames:     []string{"roads_maintained_km", "sealed_roads_km", "maintained_roads"},
		},
		{
			CanonicalName:        "infrastructure_investment_ratio",
			DisplayName:          "Infrastructure Investment Ratio",
			Category:             model.CategoryInfrastructure,
			Description:          "Infrastructure spending as percentage of total expenditure",
			Unit:                 "%",
			ExpectedAvailability: 0.60,
			DerivationFormula:    "infrastructure_expenditure / total_expenditure * 100",
		},

		// Environmental
		{
			CanonicalName:        "waste_recycling_rate",
			DisplayName:          "Waste Recycling Rate",
			Category:             model.CategoryEnvironmental,
			Description:          "Percentage of waste that is recycled or composted",
			Unit:                 "%",
			ExpectedAvailability: 0.70,
			AlternativeNames:     []string{"recycling_rate", "waste_diversion_rate", "resource_recovery_rate"},
		},
		{
			CanonicalName:        "carbon_emissions_reduction",
			DisplayName:          "Carbon Emissions Reduction",
			Category:             model.CategoryEnvironmental,
			Description:          "Percentage reduction in carbon emissions since baseline",
			Unit:                 "%",
			ExpectedAvailability: 0.50,
			AlternativeNames:     []string{"emissions_reduction", "carbon_reduction", "ghg_reduction"},
		},

		// Community
		{
			CanonicalName:        "customer_satisfaction_score",
			DisplayName:          "Customer Satisfaction Score",
			Category:             model.CategoryCommunity,
			Description:          "Overall customer satisfaction with council services",
			Unit:                 "score out of 100",
			ExpectedAvailability: 0.55,
			AlternativeNames:     []string{"customer_satisfaction", "resident_satisfaction", "service_satisfaction"},
		},
		{
			CanonicalName:        "community_engagement_rate",
			DisplayName:          "Community Engagement Rate",
			Category:             model.CategoryCommunity,
			Description:          "Percentage of residents participating in council consultations",
			Unit:                 "%",
			ExpectedAvailability: 0.40,
			AlternativeNames:     []string{"engagement_rate", "participation_rate", "consultation_participation"},
		},

		// Economic
		{
			CanonicalName:        "business_permit_approval_time",
			DisplayName:          "Business Permit Approval Time",
			Category:             model.CategoryEconomic,
			Description:          "Average time for business permit approval",
			Unit:                 "days",
			LowerIsBetter:        true,
			ExpectedAvailability: 0.60,
			AlternativeNames:     []string{"permit_approval_time", "business_licence_time", "development_permit_time"},
		},
		{
			CanonicalName:        "local_employment_rate",
			DisplayName:          "Local Employment Rate",
			Category:             model.CategoryEconomic,
			Description:          "Percentage of working age population in local employment",
			Unit:                 "%",
			ExpectedAvailability: 0.45,
			AlternativeNames:     []string{"employment_rate", "local_jobs_rate", "workforce_participation"},
		},
	}
}

// BuiltinRegionSynonyms returns the per-region alias tables for the metric
// names each jurisdiction's reporting framework uses.
func BuiltinRegionSynonyms() RegionSynonyms {
	return RegionSynonyms{
		"Victoria": {
			"complaint_response_time":     {"complaints_resolution_time", "service_request_response"},
			"waste_collection_efficiency": {"waste_service_performance", "kerbside_service_level"},
			"planning_approval_time":      {"planning_decision_time", "development_assessment_time"},
			"waste_recycling_rate":        {"resource_recovery_rate", "diversion_rate"},
			"customer_satisfaction_score": {"resident_satisfaction", "community_satisfaction"},
		},
		"NSW": {
			"complaint_response_time":     {"complaints_handling_time", "customer_service_time"},
			"waste_collection_efficiency": {"waste_collection_performance", "domestic_waste_service"},
			"planning_approval_time":      {"development_consent_time", "da_processing_time"},
			"waste_recycling_rate":        {"recycling_diversion_rate", "waste_diversion"},
			"customer_satisfaction_score": {"resident_survey_score", "customer_feedback_score"},
		},
		"Queensland": {
			"complaint_response_time":     {"complaints_response_time", "enquiry_resolution_time"},
			"waste_collection_efficiency": {"waste_management_performance", "collection_service_level"},
			"planning_approval_time":      {"development_approval_time", "planning_scheme_time"},
			"waste_recycling_rate":        {"material_recovery_rate", "recycling_performance"},
			"customer_satisfaction_score": {"community_satisfaction", "resident_experience_score"},
		},
		"WA": {
			"complaint_response_time":     {"complaints_management_time", "service_response_time"},
			"waste_collection_efficiency": {"waste_service_delivery", "collection_efficiency"},
			"planning_approval_time":      {"development_assessment_time", "planning_approval_period"},
			"waste_recycling_rate":        {"recycling_rate", "waste_recovery_rate"},
			"customer_satisfaction_score": {"customer_satisfaction", "resident_satisfaction"},
		},
		"SA": {
			"complaint_response_time":     {"complaints_response_time", "customer_complaints_time"},
			"waste_collection_efficiency": {"waste_collection_service", "domestic_waste_efficiency"},
			"planning_approval_time":      {"development_approval_time", "planning_consent_time"},
			"waste_recycling_rate":        {"recycling_performance", "waste_diversion_rate"},
			"customer_satisfaction_score": {"community_satisfaction", "resident_satisfaction"},
		},
		"Tasmania": {
			"complaint_response_time":     {"complaints_handling", "service_complaints_time"},
			"waste_collection_efficiency": {"waste_service_performance", "collection_service"},
			"planning_approval_time":      {"planning_approval_time", "development_approval"},
			"waste_recycling_rate":        {"recycling_rate", "resource_recovery"},
			"customer_satisfaction_score": {"customer_satisfaction", "community_feedback"},
		},
		"NT": {
			"complaint_response_time":     {"complaints_response", "service_request_time"},
			"waste_collection_efficiency": {"waste_collection", "waste_management_service"},
			"planning_approval_time":      {"development_approval", "planning_permission_time"},
			"waste_recycling_rate":        {"recycling_rate", "waste_recycling"},
			"customer_satisfaction_score": {"resident_satisfaction", "customer_service_score"},
		},
		"ACT": {
			"complaint_response_time":     {"complaints_resolution", "service_response"},
			"waste_collection_efficiency": {"waste_collection_efficiency", "waste_service"},
			"planning_approval_time":      {"development_approval", "da_approval_time"},
			"waste_recycling_rate":        {"recycling_rate", "waste_diversion"},
			"customer_satisfaction_score": {"resident_satisfaction", "community_satisfaction"},
		},
	}
}

// Builtin constructs the standard catalog.
func Builtin() (*Catalog, error) {
	return New(BuiltinDefinitions(), BuiltinRegionSynonyms())
}
