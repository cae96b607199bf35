package config

import (
	"github.com/Veraticus/estimatch/internal/model"
	"github.com/spf13/viper"
)

// LoadBulkOptions returns the default run options overlaid with any values
// set under the matching key.
func LoadBulkOptions() model.BulkProcessingOptions {
	opts := model.DefaultBulkOptions()

	if viper.IsSet("matching.batch_size") {
		opts.BatchSize = viper.GetInt("matching.batch_size")
	}
	if viper.IsSet("matching.max_concurrency") {
		opts.MaxConcurrency = viper.GetInt("matching.max_concurrency")
	}
	if viper.IsSet("matching.confidence_threshold") {
		opts.ConfidenceThreshold = viper.GetFloat64("matching.confidence_threshold")
	}
	if viper.IsSet("matching.enable_pattern_learning") {
		opts.EnablePatternLearning = viper.GetBool("matching.enable_pattern_learning")
	}
	if viper.IsSet("matching.enable_cache") {
		opts.EnableCache = viper.GetBool("matching.enable_cache")
	}
	if viper.IsSet("matching.prioritize_high_value") {
		opts.PrioritizeHighValue = viper.GetBool("matching.prioritize_high_value")
	}
	if viper.IsSet("matching.strict_supplier_scope") {
		opts.StrictSupplierScope = viper.GetBool("matching.strict_supplier_scope")
	}

	return opts.Normalize()
}
