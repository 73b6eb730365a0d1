package grn

// positionalParameters lists, per command, the parameter names that bare
// (non `--key`) arguments are bound to, in order.
var positionalParameters = map[string][]string{
	"cache_limit":            {"max"},
	"check":                  {"obj"},
	"clearlock":              {"objname"},
	"column_copy":            {"from_table", "from_name", "to_table", "to_name"},
	"column_create":          {"table", "name", "flags", "type", "source"},
	"column_create_similar":  {"table", "name", "base_column"},
	"column_list":            {"table"},
	"column_remove":          {"table", "name"},
	"column_rename":          {"table", "name", "new_name"},
	"config_delete":          {"key"},
	"config_get":             {"key"},
	"config_set":             {"key", "value"},
	"database_unmap":         {},
	"define_selector":        {"name", "table", "match_columns", "query", "filter", "scorer", "sortby", "output_columns", "offset", "limit", "drilldown", "drilldown_sortby", "drilldown_output_columns", "drilldown_offset", "drilldown_limit"},
	"defrag":                 {"objname", "threshold"},
	"delete":                 {"table", "key", "id", "filter"},
	"dump":                   {"tables"},
	"index_column_diff":      {"table", "name"},
	"io_flush":               {"target_name", "recursive"},
	"load":                   {"values", "table", "columns", "ifexists", "input_type", "each"},
	"lock_acquire":           {"target_name"},
	"lock_clear":             {"target_name"},
	"lock_release":           {"target_name"},
	"log_level":              {"level"},
	"log_put":                {"level", "message"},
	"log_reopen":             {},
	"logical_count":          {"logical_table", "shard_key", "min", "min_border", "max", "max_border", "filter"},
	"logical_parameters":     {"range_index"},
	"logical_range_filter":   {"logical_table", "shard_key", "min", "min_border", "max", "max_border", "order", "filter", "offset", "limit", "output_columns", "use_range_index"},
	"logical_select":         {"logical_table", "shard_key", "min", "min_border", "max", "max_border", "filter", "sortby", "output_columns", "offset", "limit", "drilldown", "drilldown_sortby", "drilldown_output_columns", "drilldown_offset", "drilldown_limit", "drilldown_calc_types", "drilldown_calc_target", "sort_keys", "drilldown_sort_keys", "match_columns", "query", "drilldown_filter"},
	"logical_shard_list":     {"logical_table"},
	"logical_table_remove":   {"logical_table", "shard_key", "min", "min_border", "max", "max_border", "dependent", "force"},
	"normalize":              {"normalizer", "string", "flags"},
	"normalizer_list":        {},
	"object_exist":           {"name"},
	"object_inspect":         {"name"},
	"object_list":            {},
	"object_remove":          {"name", "force"},
	"plugin_register":        {"name"},
	"plugin_unregister":      {"name"},
	"query_expand":           {"expander", "query", "flags", "term_column", "expanded_term_column"},
	"query_log_flags_add":    {"flags"},
	"query_log_flags_get":    {},
	"query_log_flags_remove": {"flags"},
	"query_log_flags_set":    {"flags"},
	"quit":                   {},
	"range_filter":           {"table", "column", "min", "min_border", "max", "max_border", "offset", "limit", "filter", "output_columns"},
	"register":               {"path"},
	"reference_acquire":      {"target_name", "recursive", "auto_release_count"},
	"reference_release":      {"target_name", "recursive"},
	"reindex":                {"target_name"},
	"request_cancel":         {"id"},
	"ruby_eval":              {"script"},
	"ruby_load":              {"path"},
	"schema":                 {},
	"select":                 {"table", "match_columns", "query", "filter", "scorer", "sortby", "output_columns", "offset", "limit", "drilldown", "drilldown_sortby", "drilldown_output_columns", "drilldown_offset", "drilldown_limit", "cache", "match_escalation_threshold", "query_expansion", "query_flags", "query_expander", "adjuster", "drilldown_calc_types", "drilldown_calc_target", "drilldown_filter", "sort_keys", "drilldown_sort_keys"},
	"shutdown":               {"mode"},
	"status":                 {},
	"suggest":                {"types", "table", "column", "query", "sortby", "output_columns", "offset", "limit", "frequency_threshold", "conditional_probability_threshold", "prefix_search"},
	"table_copy":             {"from_name", "to_name"},
	"table_create":           {"name", "flags", "key_type", "value_type", "default_tokenizer", "normalizer", "token_filters"},
	"table_create_similar":   {"name", "base_table"},
	"table_list":             {},
	"table_remove":           {"name", "dependent"},
	"table_rename":           {"name", "new_name"},
	"table_tokenize":         {"table", "string", "flags", "mode", "index_column"},
	"thread_limit":           {"max"},
	"tokenize":               {"tokenizer", "string", "normalizer", "flags", "mode", "token_filters"},
	"thread_dump":            {},
	"tokenizer_list":         {},
	"truncate":               {"target_name"},
}

// PositionalParameters returns the positional parameter names of a command
// and whether the command is known.
func PositionalParameters(name string) ([]string, bool) {
	params, ok := positionalParameters[name]
	return params, ok
}
