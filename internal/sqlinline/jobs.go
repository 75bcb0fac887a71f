package sqlinline

const QInsertGenerationJob = `--sql 9627c966-7746-4450-99e3-a95d4f53a319
insert into generation_jobs (
    id, user_id, model_id, style, role, status,
    credits_reserved, credits_used, completed_images, failed_images, created_at, updated_at
)
values ($1::uuid, $2::uuid, $3::text, $4::text, $5::text, 'PENDING', $6::int, 0, 0, 0, now(), now())
returning created_at, updated_at;
`

const QSelectGenerationJob = `--sql 42e1ded8-7dd8-45ac-b81f-2c4a708ecbfd
select id::text, user_id::text, model_id, style, role, status,
       credits_reserved, credits_used, completed_images, failed_images, created_at, updated_at, completed_at
from generation_jobs
where id = $1::uuid and user_id = $2::uuid;
`

const QListGenerationJobsByUser = `--sql b6ce8c70-4a4a-4739-8c14-0fd0904e4764
select id::text, user_id::text, model_id, style, role, status,
       credits_reserved, credits_used, completed_images, failed_images, created_at, updated_at, completed_at
from generation_jobs
where user_id = $1::uuid
order by created_at desc
limit $2::int;
`

const QMarkGenerationJobProcessing = `--sql 161ca24d-3441-4a43-a433-5bc2baa165b8
update generation_jobs
set status = 'PROCESSING',
    updated_at = now()
where id = $1::uuid and status = 'PENDING';
`

// QRecordGenerationUnitResult only counts toward open jobs. A unit that
// reports after its job closed matches no row and is not delivered.
const QRecordGenerationUnitResult = `--sql 2d2db084-73d8-443c-a2cf-ab776dee212b
update generation_jobs
set completed_images = completed_images + case when $2::bool then 1 else 0 end,
    failed_images = failed_images + case when $2::bool then 0 else 1 end,
    updated_at = now()
where id = $1::uuid
  and status in ('PENDING', 'PROCESSING');
`

// QFinalizeGenerationJob is the compare-and-swap that closes a job. Only
// open jobs match, so exactly one caller gets a row back. A job with units
// still unreported closes only when forced ($3) or idle since $4, and those
// units are counted as failed.
const QFinalizeGenerationJob = `--sql 40973a78-1a93-4268-9c02-a02b5d160a52
update generation_jobs
set failed_images = failed_images + greatest(credits_reserved - completed_images - failed_images, 0),
    status = case
        when failed_images + greatest(credits_reserved - completed_images - failed_images, 0) = 0 then 'COMPLETED'
        when completed_images = 0 then 'FAILED'
        else 'PARTIAL'
    end,
    credits_used = least(completed_images, credits_reserved),
    updated_at = now(),
    completed_at = now()
where id = $1::uuid
  and user_id = $2::uuid
  and status in ('PENDING', 'PROCESSING')
  and ($3::bool
       or completed_images + failed_images >= credits_reserved
       or updated_at < $4::timestamptz)
returning id::text, user_id::text, model_id, style, role, status,
          credits_reserved, credits_used, completed_images, failed_images, created_at, updated_at, completed_at;
`

const QListStaleOpenGenerationJobs = `--sql 33077f85-6b3c-4780-b2b6-053f866f7eb7
select id::text, user_id::text, model_id, style, role, status,
       credits_reserved, credits_used, completed_images, failed_images, created_at, updated_at, completed_at
from generation_jobs
where status in ('PENDING', 'PROCESSING')
  and updated_at < $1::timestamptz
order by updated_at asc
limit $2::int;
`
