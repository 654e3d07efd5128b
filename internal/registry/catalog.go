package registry

import "github.com/obsidianstack/hekaconf/internal/plugin"

func str(name string) plugin.ParamSpec  { return plugin.ParamSpec{Name: name, Type: plugin.TypeString} }
func boo(name string) plugin.ParamSpec  { return plugin.ParamSpec{Name: name, Type: plugin.TypeBool} }
func num(name string) plugin.ParamSpec  { return plugin.ParamSpec{Name: name, Type: plugin.TypeInt} }
func list(name string) plugin.ParamSpec { return plugin.ParamSpec{Name: name, Type: plugin.TypeList} }

func required(s plugin.ParamSpec) plugin.ParamSpec {
	s.Required = true
	return s
}

func withDefault(s plugin.ParamSpec, v any) plugin.ParamSpec {
	s.Default = v
	return s
}

// Common settings per category, as documented for Heka 0.10.
var (
	inputCommon = []plugin.ParamSpec{
		str("decoder"),
		str("splitter"),
		boo("synchronous_decode"),
		boo("send_decode_failures"),
		boo("can_exit"),
		boo("log_decode_failures"),
	}

	splitterCommon = []plugin.ParamSpec{
		boo("keep_truncated"),
		boo("use_message_bytes"),
		num("min_buffer_size"),
		boo("deliver_incomplete_final"),
	}

	filterCommon = []plugin.ParamSpec{
		required(str("message_matcher")),
		str("message_signer"),
		num("ticker_interval"),
		boo("can_exit"),
		boo("use_buffering"),
	}

	outputCommon = []plugin.ParamSpec{
		required(str("message_matcher")),
		str("message_signer"),
		num("ticker_interval"),
		str("encoder"),
		boo("use_framing"),
		boo("can_exit"),
		boo("use_buffering"),
	}
)

var sandboxParams = []plugin.ParamSpec{
	required(str("filename")),
	boo("preserve_data"),
	num("memory_limit"),
	num("instruction_limit"),
	num("output_limit"),
	str("module_directory"),
}

func input(kind string, params ...plugin.ParamSpec) *Entry {
	return &Entry{Kind: kind, Category: plugin.CategoryInput, Common: inputCommon, Params: params}
}

func decoder(kind string, params ...plugin.ParamSpec) *Entry {
	return &Entry{Kind: kind, Category: plugin.CategoryDecoder, Params: params}
}

func splitter(kind string, params ...plugin.ParamSpec) *Entry {
	return &Entry{Kind: kind, Category: plugin.CategorySplitter, Common: splitterCommon, Params: params}
}

func filter(kind string, params ...plugin.ParamSpec) *Entry {
	return &Entry{Kind: kind, Category: plugin.CategoryFilter, Common: filterCommon, Params: params}
}

func output(kind string, params ...plugin.ParamSpec) *Entry {
	return &Entry{Kind: kind, Category: plugin.CategoryOutput, Common: outputCommon, Params: params}
}

func encoder(kind string, params ...plugin.ParamSpec) *Entry {
	return &Entry{Kind: kind, Category: plugin.CategoryEncoder, Params: params}
}

// catalog returns the built-in plugin kinds.
func catalog() []*Entry {
	entries := []*Entry{
		// inputs
		input("AMQPInput",
			required(str("url")),
			required(str("exchange")),
			required(str("exchange_type")),
			boo("exchange_durability"),
			boo("exchange_auto_delete"),
			str("routing_key"),
			num("prefetch_count"),
			str("queue"),
			boo("queue_durability"),
			boo("queue_exclusive"),
			boo("queue_auto_delete"),
			num("queue_ttl"),
			boo("read_only"),
		),
		input("LogstreamerInput",
			required(str("log_directory")),
			required(str("file_match")),
			withDefault(str("rescan_interval"), "1m"),
			str("hostname"),
			str("oldest_duration"),
			str("journal_directory"),
			list("priority"),
			list("differentiator"),
		),
		input("TcpInput",
			required(str("address")),
			str("net"),
			boo("use_tls"),
			boo("keep_alive"),
			num("keep_alive_period"),
		),
		input("UdpInput",
			required(str("address")),
			str("net"),
		),
		input("HttpListenInput",
			required(str("address")),
			list("request_headers"),
		),
		input("StatsdInput",
			required(str("address")),
			str("stat_accum_name"),
			num("max_msg_size"),
		),
		input("StatAccumInput",
			boo("emit_in_payload"),
			boo("emit_in_fields"),
			num("percent_threshold"),
			num("ticker_interval"),
			str("message_type"),
			str("global_prefix"),
			str("counter_prefix"),
			str("timer_prefix"),
			str("gauge_prefix"),
			str("statsd_prefix"),
			boo("legacy_namespaces"),
		),
		input("KafkaInput",
			required(list("addrs")),
			required(str("topic")),
			num("partition"),
			str("group"),
			str("offset_method"),
			num("offset_interval"),
		),

		// decoders
		decoder("ProtobufDecoder"),
		decoder("SandboxDecoder", sandboxParams...),
		decoder("PayloadRegexDecoder",
			required(str("match_regex")),
			str("timestamp_layout"),
			str("timestamp_location"),
			boo("log_errors"),
		),

		// splitters
		splitter("NullSplitter"),
		splitter("TokenSplitter", str("delimiter")),
		splitter("RegexSplitter",
			required(str("delimiter")),
			boo("delimiter_eol"),
		),
		splitter("HekaFramingSplitter", boo("skip_authentication")),

		// filters
		filter("CounterFilter"),
		filter("SandboxFilter", sandboxParams...),
		filter("StatFilter", str("stat_accum_name")),

		// outputs
		output("LogOutput"),
		output("FileOutput",
			required(str("path")),
			str("perm"),
			str("folder_perm"),
			num("flush_interval"),
			num("flush_count"),
			str("flush_operator"),
			num("rotation_interval"),
		),
		output("ElasticSearchOutput",
			withDefault(str("server"), "http://localhost:9200"),
			num("flush_interval"),
			num("flush_count"),
			num("connect_timeout"),
			num("http_timeout"),
			boo("http_disable_keepalives"),
			str("username"),
			str("password"),
		),
		output("AMQPOutput",
			required(str("url")),
			required(str("exchange")),
			required(str("exchange_type")),
			boo("exchange_durability"),
			boo("exchange_auto_delete"),
			str("routing_key"),
			boo("persistent"),
			str("content_type"),
		),
		output("TcpOutput",
			required(str("address")),
			boo("use_tls"),
			boo("keep_alive"),
			num("keep_alive_period"),
			num("reconnect_after"),
		),
		output("KafkaOutput",
			required(list("addrs")),
			str("topic"),
			str("partitioner"),
			str("hash_variable"),
			str("required_acks"),
			num("max_message_bytes"),
		),

		// encoders
		encoder("PayloadEncoder",
			boo("append_newlines"),
			boo("prefix_ts"),
			str("ts_format"),
			boo("ts_from_message"),
		),
		encoder("ProtobufEncoder"),
		encoder("RstEncoder"),
		encoder("ESJsonEncoder",
			withDefault(str("index"), "heka-%{%Y.%m.%d}"),
			withDefault(str("type_name"), "message"),
			list("fields"),
			str("timestamp"),
			boo("es_index_from_timestamp"),
			str("id"),
		),
		encoder("SandboxEncoder",
			required(str("filename")),
			num("memory_limit"),
			num("instruction_limit"),
			num("output_limit"),
			str("module_directory"),
		),
	}
	if err := checkCatalog(entries); err != nil {
		panic(err)
	}
	return entries
}
