/*
Package config loads treesync job files.

	            +-------------+
	            |     Job     |
	            | (endpoints, |
	            |  resources) |
	            +------+------+
	                   |
	      +------------+------------+
	      |            |            |
	+-----+----+ +-----+----+ +-----+----+
	|   YAML   | |   HCL    | |   JSON   |
	|  Parser  | |  Parser  | |  Parser  |
	+----------+ +----------+ +----------+

🎯 Purpose:
- Describe a source endpoint, a destination endpoint and an ordered list of
  resources in one file
- Validate the description and fill the defaults
- Convert it to the types the engine consumes

🔄 Flow:
1. Pick a parser from the file extension
2. Decode strictly (unknown fields are errors)
3. Validate: defaults, path normalization, ~ expansion, enum parsing
4. Convert: Specifications(), Endpoint.Backend(), RendererOptions()

🔍 Example (YAML):

	source:
	  protocol: local
	destination:
	  protocol: sftp
	  host: backup.internal
	  user: deploy
	  key_file: ~/.ssh/id_ed25519
	  known_hosts: ~/.ssh/known_hosts
	max_par: 4
	resources:
	  - src: /data
	    dest: /backup
	    match: "logs/*.log"
	    links: keep_links
	    behavior: force_overwrite

🔍 Example (HCL):

	source {}
	destination {
	  protocol = "cifs"
	  host     = "files.internal"
	  share    = "backup"
	  user     = "svc"
	  password = env.BACKUP_PASSWORD
	}
	resource {
	  src  = "/data"
	  dest = "/nightly"
	}
*/
package config
