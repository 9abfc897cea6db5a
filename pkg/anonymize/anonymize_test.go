package anonymize_test

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macropower/rbplint/pkg/anonymize"
	"github.com/macropower/rbplint/pkg/profiler"
)

const salt = "00000000-0000-0000-0000-00000000a004"

func TestAnonymizer_Anonymize(t *testing.T) {
	t.Parallel()

	a := anonymize.New(salt)

	tcs := map[string]string{
		"my_profiler":           "5b6c98e19e21e77191fb071bb9e80070",
		"rule_1":                "5a83f3728393d6519a197cffdccd50ff",
		"rule_2":                "0bac2cecbb0cf8bb704e86710941434e",
		"my_parameter":          "9349ed253aba01f4ecf190af61018a11",
		"MyCustomDomainBuilder": "d2972bccf7a2a0ff91ba9369a86dcbe1",
		"my_condition":          "553b1c035d9b602798d64d23d63abd32",
	}

	for input, want := range tcs {
		t.Run(input, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, want, a.Anonymize(input))
		})
	}
}

func TestNew_RandomSalt(t *testing.T) {
	t.Parallel()

	a := anonymize.New("")
	_, err := uuid.Parse(a.Salt())
	require.NoError(t, err)

	b := anonymize.New("")
	assert.NotEqual(t, a.Anonymize("x"), b.Anonymize("x"))
}

func TestAnonymizer_ProfilerRun(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		src  string
		want string
	}{
		"custom classes": {
			src: `name: my_profiler
config_version: 1.0
variables:
  false_positive_rate: 0.01
rules:
  rule_1:
    domain_builder:
      class_name: MyCustomDomainBuilder
    parameter_builders:
      - name: my_parameter
        class_name: MyCustomParameterBuilder
    expectation_configuration_builders:
      - expectation_type: expect_custom_expectation
        class_name: MyCustomExpectationConfigurationBuilder
`,
			want: `{
  "anonymized_name": "5b6c98e19e21e77191fb071bb9e80070",
  "config_version": 1.0,
  "variable_count": 1,
  "rule_count": 1,
  "anonymized_rules": [
    {
      "anonymized_name": "5a83f3728393d6519a197cffdccd50ff",
      "anonymized_domain_builder": {
        "anonymized_class": "d2972bccf7a2a0ff91ba9369a86dcbe1",
        "parent_class": "__not_recognized__"
      },
      "anonymized_parameter_builders": [
        {
          "anonymized_class": "c73849d7016ce7ab68e24465361a717a",
          "anonymized_name": "9349ed253aba01f4ecf190af61018a11",
          "parent_class": "__not_recognized__"
        }
      ],
      "anonymized_expectation_configuration_builders": [
        {
          "anonymized_class": "0d70a2037f19cf1764afad97c7395167",
          "anonymized_expectation_type": "c7c23fbf56041786bf024a2407031b27",
          "parent_class": "__not_recognized__"
        }
      ]
    }
  ]
}`,
		},
		"known classes with batch request and condition": {
			src: `name: my_profiler
config_version: 1.0
variables:
  false_positive_rate: 0.01
rules:
  rule_1:
    domain_builder:
      class_name: TableDomainBuilder
      batch_request:
        datasource_name: my_datasource
        data_connector_name: my_basic_data_connector
        data_asset_name: my_data_asset
    parameter_builders:
      - name: my_parameter
        class_name: MetricMultiBatchParameterBuilder
        metric_name: table.row_count
        batch_request:
          datasource_name: my_datasource
          data_connector_name: my_basic_data_connector
          data_asset_name: my_data_asset
    expectation_configuration_builders:
      - expectation_type: expect_column_pair_values_A_to_be_greater_than_B
        class_name: DefaultExpectationConfigurationBuilder
        condition: my_condition
  rule_2:
    domain_builder:
      class_name: TableDomainBuilder
`,
			want: `{
  "anonymized_name": "5b6c98e19e21e77191fb071bb9e80070",
  "config_version": 1.0,
  "variable_count": 1,
  "rule_count": 2,
  "anonymized_rules": [
    {
      "anonymized_name": "5a83f3728393d6519a197cffdccd50ff",
      "anonymized_domain_builder": {
        "anonymized_batch_request": {
          "anonymized_batch_request_required_top_level_properties": {
            "anonymized_data_asset_name": "eac128c5824b698c22b441ada61022d4",
            "anonymized_data_connector_name": "123a3221fc4b65014d061cce4a71782e",
            "anonymized_datasource_name": "df78ebde1957385a02d8736cd2c9a6d9"
          }
        },
        "parent_class": "TableDomainBuilder"
      },
      "anonymized_parameter_builders": [
        {
          "anonymized_batch_request": {
            "anonymized_batch_request_required_top_level_properties": {
              "anonymized_data_asset_name": "eac128c5824b698c22b441ada61022d4",
              "anonymized_data_connector_name": "123a3221fc4b65014d061cce4a71782e",
              "anonymized_datasource_name": "df78ebde1957385a02d8736cd2c9a6d9"
            }
          },
          "anonymized_name": "9349ed253aba01f4ecf190af61018a11",
          "parent_class": "MetricMultiBatchParameterBuilder"
        }
      ],
      "anonymized_expectation_configuration_builders": [
        {
          "anonymized_condition": "553b1c035d9b602798d64d23d63abd32",
          "expectation_type": "expect_column_pair_values_A_to_be_greater_than_B",
          "parent_class": "DefaultExpectationConfigurationBuilder"
        }
      ]
    },
    {
      "anonymized_name": "0bac2cecbb0cf8bb704e86710941434e",
      "anonymized_domain_builder": {
        "parent_class": "TableDomainBuilder"
      },
      "anonymized_parameter_builders": [],
      "anonymized_expectation_configuration_builders": []
    }
  ]
}`,
		},
	}

	a := anonymize.New(salt)

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			cfg, err := profiler.Parse([]byte(tc.src))
			require.NoError(t, err)

			got, err := json.Marshal(a.ProfilerRun(cfg))
			require.NoError(t, err)
			assert.JSONEq(t, tc.want, string(got))
		})
	}
}
